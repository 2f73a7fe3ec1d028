// Package ollama talks to a local Ollama server's generate endpoint.
package ollama

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

const DefaultBaseURL = "http://localhost:11434"

type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type GenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

type Client struct {
	model   string
	baseURL string
}

func NewClient(model string) *Client {
	return &Client{model: model, baseURL: DefaultBaseURL}
}

// WithBaseURL overrides the server root. An empty url keeps the current one.
func (c *Client) WithBaseURL(url string) *Client {
	if url = strings.TrimRight(strings.TrimSpace(url), "/"); url != "" {
		c.baseURL = url
	}
	return c
}

func (c *Client) GetModelID() string {
	return c.model
}

// Complete runs a non-streaming generate call.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := GenerateRequest{Model: c.model, Prompt: prompt}
	body, resp, err := httpclient.PostJSON(ctx, nil, c.baseURL+"/api/generate", nil, req)
	if err != nil {
		return "", httpclient.ClassifyTransport("Ollama at "+c.baseURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		var env struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &env)
		cause := fmt.Errorf("ollama status=%s error=%s", resp.Status, env.Error)
		if resp.StatusCode == http.StatusNotFound && strings.Contains(env.Error, "not found") {
			return "", apperrors.New(
				apperrors.KindBadRequest,
				fmt.Sprintf("Ollama model %q is not installed. Run `ollama pull %s`.", c.model, c.model),
				cause,
			)
		}
		return "", httpclient.ClassifyStatus("Ollama", resp.StatusCode, resp.Status, cause)
	}

	var out GenerateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", apperrors.New(
			apperrors.KindValidation,
			"Ollama response format was invalid.",
			fmt.Errorf("failed to decode response: %w", err),
		)
	}
	slog.Debug("Ollama API Response", "model", out.Model, "done", out.Done, "eval_count", out.EvalCount)
	return out.Response, nil
}
