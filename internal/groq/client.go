package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oukeidos/transpop/internal/apperrors"
	"github.com/oukeidos/transpop/internal/httpclient"
)

// DefaultBaseURL is Groq's OpenAI-compatible API root.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat/completions.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

type Client struct {
	apiKey  string
	model   string
	baseURL string
}

func NewClient(apiKey, model string) *Client {
	return &Client{apiKey: apiKey, model: model, baseURL: DefaultBaseURL}
}

// WithBaseURL overrides the API root. An empty url keeps the current one.
func (c *Client) WithBaseURL(url string) *Client {
	if url = strings.TrimRight(strings.TrimSpace(url), "/"); url != "" {
		c.baseURL = url
	}
	return c
}

func (c *Client) GetModelID() string {
	return c.model
}

// Complete sends prompt as one user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := ChatRequest{
		Model:    c.model,
		Messages: []Message{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	body, resp, err := httpclient.PostJSON(ctx, nil, c.baseURL+"/chat/completions", headers, req)
	if err != nil {
		return "", httpclient.ClassifyTransport("Groq", err)
	}
	if resp.StatusCode != http.StatusOK {
		var env errorEnvelope
		_ = json.Unmarshal(body, &env)
		cause := fmt.Errorf("groq status=%s type=%s code=%s message=%s", resp.Status, env.Error.Type, env.Error.Code, env.Error.Message)
		if env.Error.Code == "model_not_found" {
			return "", apperrors.New(apperrors.KindBadRequest, "The model does not exist or you do not have access to it.", cause)
		}
		return "", httpclient.ClassifyStatus("Groq API", resp.StatusCode, resp.Status, cause)
	}

	var out ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", apperrors.New(
			apperrors.KindValidation,
			"Groq response format was invalid.",
			fmt.Errorf("failed to decode response: %w", err),
		)
	}
	if len(out.Choices) == 0 {
		return "", apperrors.New(apperrors.KindValidation, "Groq returned no choices.", fmt.Errorf("empty choices in %s", out.ID))
	}

	slog.Debug("Groq API Response", "status", resp.Status, "usage_total", out.Usage.TotalTokens, "response_id", out.ID)
	return out.Choices[0].Message.Content, nil
}
