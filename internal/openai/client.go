package openai

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

// DefaultBaseURL is the public OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// RequestData represents the request body for OpenAI API
type RequestData struct {
	Model           string      `json:"model"`
	Input           []InputItem `json:"input"`
	MaxOutputTokens int         `json:"max_output_tokens,omitempty"`
}

type InputItem struct {
	Type    string `json:"type"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ResponseData represents the simplified response body from OpenAI Responses API
type ResponseData struct {
	ID                string             `json:"id"`
	Status            string             `json:"status"`
	IncompleteDetails *IncompleteDetails `json:"incomplete_details,omitempty"`
	Output            []OutputItem       `json:"output"`
	Usage             Usage              `json:"usage"`
}

type IncompleteDetails struct {
	Reason string `json:"reason"`
}

type OutputItem struct {
	Type    string            `json:"type"`
	Status  string            `json:"status,omitempty"`
	Role    string            `json:"role,omitempty"`
	Content []ResponseContent `json:"content,omitempty"`
}

type ResponseContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// OutputText concatenates every output_text part of assistant messages.
func (r *ResponseData) OutputText() string {
	var sb strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String()
}

type errorEnvelope struct {
	Error errorDetails `json:"error"`
}

type errorDetails struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"`
}

func (e errorDetails) codeString() string {
	if e.Code == nil {
		return ""
	}
	return fmt.Sprint(e.Code)
}

type Client struct {
	apiKey  string
	model   string
	baseURL string
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
// An empty url keeps the current one.
func (c *Client) WithBaseURL(url string) *Client {
	if url = strings.TrimRight(strings.TrimSpace(url), "/"); url != "" {
		c.baseURL = url
	}
	return c
}

// GetModelID returns the configured model identifier.
func (c *Client) GetModelID() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.Generate(ctx, RequestData{
		Input: []InputItem{{Type: "message", Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	if resp.Status == "incomplete" && resp.IncompleteDetails != nil {
		slog.Warn("OpenAI response incomplete", "reason", resp.IncompleteDetails.Reason)
	}
	out := resp.OutputText()
	if strings.TrimSpace(out) == "" {
		return "", apperrors.New(
			apperrors.KindValidation,
			"OpenAI returned an empty response.",
			fmt.Errorf("no output_text in response %s", resp.ID),
		)
	}
	return out, nil
}

func (c *Client) Generate(ctx context.Context, req RequestData) (*ResponseData, error) {
	req.Model = c.model

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	body, resp, err := httpclient.PostJSON(ctx, nil, c.baseURL+"/responses", headers, req)
	if err != nil {
		return nil, httpclient.ClassifyTransport("OpenAI", err)
	}

	if resp.StatusCode != http.StatusOK {
		details := parseErrorDetails(body)
		return nil, classifyOpenAIError(resp.StatusCode, resp.Status, details)
	}

	var result ResponseData
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperrors.New(
			apperrors.KindValidation,
			"OpenAI response format was invalid.",
			fmt.Errorf("failed to decode response: %w", err),
		)
	}

	slog.Debug("OpenAI API Response", "status", resp.Status, "usage_total", result.Usage.TotalTokens, "response_id", result.ID)
	return &result, nil
}

func parseErrorDetails(body []byte) errorDetails {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errorDetails{}
	}
	return envelope.Error
}

func classifyOpenAIError(statusCode int, status string, details errorDetails) error {
	code := details.codeString()
	cause := fmt.Errorf("openai status=%s type=%s code=%s message=%s", status, details.Type, code, details.Message)

	if statusCode == http.StatusNotFound && isOpenAIModelNotFound(details) {
		return apperrors.New(
			apperrors.KindBadRequest,
			"The model does not exist or you do not have access to it.",
			cause,
		)
	}
	return httpclient.ClassifyStatus("OpenAI API", statusCode, status, cause)
}

func isOpenAIModelNotFound(details errorDetails) bool {
	needle := strings.ToLower(details.codeString() + " " + details.Type + " " + details.Message)
	if strings.Contains(needle, "model_not_found") {
		return true
	}
	return strings.Contains(needle, "does not exist or you do not have access to it")
}
