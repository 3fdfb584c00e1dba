package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"mailforge/config"
	"mailforge/middleware"
	"mailforge/models"
	"mailforge/utils"
)

var testSecret = []byte("test-secret")

type testEnv struct {
	app       *fiber.App
	db        *gorm.DB
	auth      *AuthController
	templates *TemplateController
	campaigns *CampaignController
	drafts    *DraftController
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.MigrateDB(db))

	logger := log.New(io.Discard, "", 0)

	env := &testEnv{
		db: db,
		auth: &AuthController{
			DB:       db,
			Logger:   logger,
			Secret:   testSecret,
			Verifier: utils.NewGoogleVerifier(""),
		},
		templates: NewTemplateController(db, logger),
		campaigns: NewCampaignController(db, logger, nil),
		drafts:    NewDraftController(db, logger, utils.NewMailer(config.SMTPConfig{})),
	}

	app := fiber.New()
	app.Post("/auth/google", env.auth.GoogleAuth)
	app.Post("/auth/refresh-token", env.auth.RefreshToken)
	app.Get("/auth/google", env.auth.GoogleOAuth)
	app.Get("/auth/google/callback", env.auth.GoogleOAuthCallback)

	protected := middleware.Protected(db, testSecret)
	app.Get("/auth/me", protected, env.auth.GetCurrentUser)

	template := app.Group("/templates", protected)
	template.Get("/", env.templates.GetTemplates)
	template.Post("/", env.templates.CreateTemplate)
	template.Get("/:id", env.templates.GetTemplate)
	template.Put("/:id", env.templates.UpdateTemplate)
	template.Delete("/:id", env.templates.DeleteTemplate)

	campaign := app.Group("/campaigns", protected)
	campaign.Get("/", env.campaigns.GetCampaigns)
	campaign.Post("/", env.campaigns.CreateCampaign)
	campaign.Get("/:id", env.campaigns.GetCampaign)
	campaign.Put("/:id", env.campaigns.UpdateCampaign)
	campaign.Delete("/:id", env.campaigns.DeleteCampaign)
	campaign.Post("/:id/generate_email", env.campaigns.GenerateEmail)

	draft := app.Group("/drafts", protected)
	draft.Get("/", env.drafts.GetDrafts)
	draft.Post("/", env.drafts.CreateDraft)
	draft.Get("/:id", env.drafts.GetDraft)
	draft.Post("/:id/mark_sent", env.drafts.MarkSent)
	draft.Post("/:id/send", env.drafts.SendDraft)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	env.app = app
	return env
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := models.User{Email: email, IsActive: true}
	require.NoError(t, e.db.Create(&user).Error)
	return &user
}

func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	access, _, err := utils.GenerateTokenPair(e.db, user, testSecret, "test", "127.0.0.1")
	require.NoError(t, err)
	return access
}

// request performs an in-process HTTP request and returns the response and
// its raw body.
func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func decodeJSON(t *testing.T, raw []byte, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, out))
}

// fakeTokenInfoServer serves Google tokeninfo claims for the auth tests.
func fakeTokenInfoServer(t *testing.T, claims map[string]string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(claims)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeCompletionServer serves a chat-completions response and records the
// last user prompt it received.
func fakeCompletionServer(t *testing.T, reply string, status int) (*httptest.Server, *string) {
	t.Helper()
	var lastPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, m := range req.Messages {
			if m.Role == "user" {
				lastPrompt = m.Content
			}
		}

		w.WriteHeader(status)
		if status == http.StatusOK {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "content": reply}},
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "model overloaded"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &lastPrompt
}

// fakeGoogleOAuthServer serves the token exchange and userinfo endpoints of
// the redirect flow.
func fakeGoogleOAuthServer(t *testing.T, profile map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "oauth-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (e *testEnv) useOAuth(baseURL string) {
	e.auth.OAuth = &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost/auth/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  baseURL + "/auth",
			TokenURL: baseURL + "/token",
		},
	}
	e.auth.UserInfoURL = baseURL + "/userinfo"
}

func (e *testEnv) useCompletion(baseURL string) {
	e.campaigns.Completion = utils.NewCompletionClient(config.OpenAIConfig{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       "gpt-3.5-turbo",
		MaxTokens:   500,
		Temperature: 0.7,
	})
}
