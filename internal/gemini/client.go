package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/oukeidos/transpop/internal/apperrors"
	"github.com/oukeidos/transpop/internal/httpclient"
	"google.golang.org/api/option"
)

// Client handles communication with the Gemini API.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// UsageMetadata holds token usage information.
type UsageMetadata struct {
	PromptTokenCount     int
	CandidatesTokenCount int
	TotalTokenCount      int
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey string, modelName string) (*Client, error) {
	// option.WithHTTPClient breaks the library's API key header injection, so
	// timeouts are enforced via context in Complete.
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &Client{
		client: client,
		model:  client.GenerativeModel(modelName),
		name:   modelName,
	}, nil
}

// Close closes the underlying genai client.
func (c *Client) Close() error {
	return c.client.Close()
}

// GetModelID returns the configured model identifier.
func (c *Client) GetModelID() string {
	return c.name
}

// SetSystemInstruction sets the system prompt for the model.
func (c *Client) SetSystemInstruction(prompt string) {
	c.model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompt)},
	}
}

// Completer is the text-in/text-out surface shared with the mock.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var _ Completer = (*Client)(nil)

// Complete sends prompt as plain text and returns the combined reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, httpclient.DefaultTimeout)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyGeminiError(err)
	}

	text, err := extractResponseText(resp)
	if err != nil {
		return "", apperrors.Validation(err)
	}

	usage := usageOf(resp)
	slog.Debug("Gemini API Response", "model", c.name, "usage_total", usage.TotalTokenCount)
	return text, nil
}

func usageOf(resp *genai.GenerateContentResponse) UsageMetadata {
	if resp == nil || resp.UsageMetadata == nil {
		return UsageMetadata{}
	}
	return UsageMetadata{
		PromptTokenCount:     int(resp.UsageMetadata.PromptTokenCount),
		CandidatesTokenCount: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokenCount:      int(resp.UsageMetadata.TotalTokenCount),
	}
}

func extractResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("no response received from Gemini")
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			continue
		}
		var combined string
		for _, part := range candidate.Content.Parts {
			text, ok := part.(genai.Text)
			if !ok {
				continue
			}
			combined += string(text)
		}
		if combined != "" {
			return combined, nil
		}
	}
	return "", fmt.Errorf("no text parts found in Gemini response")
}
