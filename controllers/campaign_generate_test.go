package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailforge/models"
	"mailforge/utils"
)

func TestGenerateEmail_NoTemplate(t *testing.T) {
	env := newTestEnv(t)
	srv, lastPrompt := fakeCompletionServer(t, "Hello A, just saying hello.", http.StatusOK)
	env.useCompletion(srv.URL)

	user := env.createUser(t, "owner@example.com")
	campaign := models.EmailCampaign{
		Name: "c", CustomPrompt: "Say hello",
		CreatedByID: user.ID, Status: models.CampaignStatusDraft,
	}
	require.NoError(t, env.db.Create(&campaign).Error)

	resp, raw := env.request(t, http.MethodPost,
		fmt.Sprintf("/campaigns/%d/generate_email", campaign.ID), env.token(t, user),
		map[string]interface{}{
			"recipient_data": map[string]interface{}{"email": "a@b.com", "name": "A"},
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var body struct {
		DraftID        uint   `json:"draft_id"`
		GeneratedEmail string `json:"generated_email"`
	}
	decodeJSON(t, raw, &body)
	assert.Equal(t, "Hello A, just saying hello.", body.GeneratedEmail)

	// The prompt carries the placeholder, the instructions and the recipient
	assert.Contains(t, *lastPrompt, utils.NoTemplatePlaceholder)
	assert.Contains(t, *lastPrompt, "Say hello")
	assert.Contains(t, *lastPrompt, `"email":"a@b.com"`)
	assert.Contains(t, *lastPrompt, `"name":"A"`)

	var draft models.EmailDraft
	require.NoError(t, env.db.First(&draft, body.DraftID).Error)
	assert.Equal(t, models.DraftStatusGenerated, draft.Status)
	require.NotNil(t, draft.GeneratedAt)
	assert.Equal(t, utils.DefaultDraftSubject, draft.Subject)
	assert.Equal(t, "Hello A, just saying hello.", draft.Body)
	assert.Equal(t, "a@b.com", draft.RecipientEmail)
	assert.Equal(t, "A", draft.RecipientName)
	assert.Equal(t, "a@b.com", draft.PersonalizationData["email"])
}

func TestGenerateEmail_WithTemplate(t *testing.T) {
	env := newTestEnv(t)
	srv, lastPrompt := fakeCompletionServer(t, "generated body", http.StatusOK)
	env.useCompletion(srv.URL)

	user := env.createUser(t, "owner@example.com")
	tpl := models.EmailTemplate{
		Name: "tpl", SubjectTemplate: "Welcome to Acme",
		BodyTemplate: "Dear {{name}}, welcome.",
		CreatedByID:  user.ID, IsActive: true,
	}
	require.NoError(t, env.db.Create(&tpl).Error)

	campaign := models.EmailCampaign{
		Name: "c", TemplateID: &tpl.ID, CustomPrompt: "Formal tone",
		CreatedByID: user.ID, Status: models.CampaignStatusDraft,
	}
	require.NoError(t, env.db.Create(&campaign).Error)

	resp, raw := env.request(t, http.MethodPost,
		fmt.Sprintf("/campaigns/%d/generate_email", campaign.ID), env.token(t, user),
		map[string]interface{}{
			"recipient_data": map[string]interface{}{"email": "a@b.com", "name": "A"},
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	assert.Contains(t, *lastPrompt, "Dear {{name}}, welcome.")

	var body struct {
		DraftID uint `json:"draft_id"`
	}
	decodeJSON(t, raw, &body)

	var draft models.EmailDraft
	require.NoError(t, env.db.First(&draft, body.DraftID).Error)
	assert.Equal(t, "Welcome to Acme", draft.Subject)
}

func TestGenerateEmail_CompletionFailureLeavesNoDraft(t *testing.T) {
	env := newTestEnv(t)
	srv, _ := fakeCompletionServer(t, "", http.StatusInternalServerError)
	env.useCompletion(srv.URL)

	user := env.createUser(t, "owner@example.com")
	campaign := models.EmailCampaign{Name: "c", CreatedByID: user.ID, Status: models.CampaignStatusDraft}
	require.NoError(t, env.db.Create(&campaign).Error)

	resp, raw := env.request(t, http.MethodPost,
		fmt.Sprintf("/campaigns/%d/generate_email", campaign.ID), env.token(t, user),
		map[string]interface{}{
			"recipient_data": map[string]interface{}{"email": "a@b.com", "name": "A"},
		})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decodeJSON(t, raw, &body)
	assert.Contains(t, body["error"], "model overloaded")

	var count int64
	env.db.Model(&models.EmailDraft{}).Count(&count)
	assert.EqualValues(t, 0, count, "a failed generation must not persist a draft")
}

func TestGenerateEmail_ForeignCampaign(t *testing.T) {
	env := newTestEnv(t)
	srv, _ := fakeCompletionServer(t, "x", http.StatusOK)
	env.useCompletion(srv.URL)

	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")

	campaign := models.EmailCampaign{Name: "c", CreatedByID: alice.ID, Status: models.CampaignStatusDraft}
	require.NoError(t, env.db.Create(&campaign).Error)

	resp, _ := env.request(t, http.MethodPost,
		fmt.Sprintf("/campaigns/%d/generate_email", campaign.ID), env.token(t, bob),
		map[string]interface{}{
			"recipient_data": map[string]interface{}{"email": "a@b.com"},
		})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerateEmail_RecipientValidation(t *testing.T) {
	env := newTestEnv(t)
	srv, _ := fakeCompletionServer(t, "x", http.StatusOK)
	env.useCompletion(srv.URL)

	user := env.createUser(t, "owner@example.com")
	campaign := models.EmailCampaign{Name: "c", CreatedByID: user.ID, Status: models.CampaignStatusDraft}
	require.NoError(t, env.db.Create(&campaign).Error)
	token := env.token(t, user)
	path := fmt.Sprintf("/campaigns/%d/generate_email", campaign.ID)

	// Missing email
	resp, _ := env.request(t, http.MethodPost, path, token, map[string]interface{}{
		"recipient_data": map[string]interface{}{"name": "A"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Malformed email
	resp, _ = env.request(t, http.MethodPost, path, token, map[string]interface{}{
		"recipient_data": map[string]interface{}{"email": "not-an-email"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var count int64
	env.db.Model(&models.EmailDraft{}).Count(&count)
	assert.EqualValues(t, 0, count)
}
