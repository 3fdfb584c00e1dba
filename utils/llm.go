package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mailforge/config"
)

// SystemPrompt is the fixed persona every completion request is made with.
const SystemPrompt = "You are a professional email writer."

// CompletionClient talks to an OpenAI-compatible chat-completions API. The
// service is treated as an opaque text-in/text-out function; any transport,
// quota or model error surfaces as a plain error and no retry is attempted.
type CompletionClient struct {
	Config config.OpenAIConfig
	Client *http.Client
}

func NewCompletionClient(cfg config.OpenAIConfig) *CompletionClient {
	return &CompletionClient{
		Config: cfg,
		Client: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the system and user prompts to the completion service and
// returns the generated text verbatim.
func (cc *CompletionClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := chatCompletionRequest{
		Model: cc.Config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   cc.Config.MaxTokens,
		Temperature: cc.Config.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		cc.Config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cc.Config.APIKey)

	resp, err := cc.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return "", fmt.Errorf("completion service error: %s", result.Error.Message)
		}
		return "", fmt.Errorf("completion service returned status %d", resp.StatusCode)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("completion service returned no choices")
	}

	return result.Choices[0].Message.Content, nil
}
