package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oukeidos/transpop/internal/apperrors"
)

func TestClient_Generate_Errors(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		responseBody   string
		expectedErrMsg string
		expectedKind   apperrors.Kind
	}{
		{
			name:           "429 Too Many Requests",
			status:         http.StatusTooManyRequests,
			responseBody:   `{"error": {"message": "Rate limit reached: SECRET_SELECTION", "type": "rate_limit_error", "code": "rate_limit_exceeded"}}`,
			expectedErrMsg: "OpenAI API rate limit exceeded (429)",
			expectedKind:   apperrors.KindRateLimit,
		},
		{
			name:           "401 Unauthorized",
			status:         http.StatusUnauthorized,
			responseBody:   `{"error": {"message": "Invalid API Key: SECRET_SELECTION", "type": "auth_error"}}`,
			expectedErrMsg: "OpenAI API authentication/authorization failed (401)",
			expectedKind:   apperrors.KindAuth,
		},
		{
			name:           "500 Internal Server Error",
			status:         http.StatusInternalServerError,
			responseBody:   "server down SECRET_SELECTION",
			expectedErrMsg: "OpenAI API server error (500)",
			expectedKind:   apperrors.KindTransient,
		},
		{
			name:           "403 Forbidden",
			status:         http.StatusForbidden,
			responseBody:   "restricted SECRET_SELECTION",
			expectedErrMsg: "OpenAI API authentication/authorization failed (403)",
			expectedKind:   apperrors.KindAuth,
		},
		{
			name:           "404 model not found",
			status:         http.StatusNotFound,
			responseBody:   `{"error": {"message": "The model 'x' does not exist", "type": "invalid_request_error", "code": "model_not_found"}}`,
			expectedErrMsg: "The model does not exist or you do not have access to it.",
			expectedKind:   apperrors.KindBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.responseBody)
			}))
			defer server.Close()

			client := NewClient("test-key", "test-model").WithBaseURL(server.URL)

			_, err := client.Generate(context.Background(), RequestData{})
			if err == nil {
				t.Fatal("Expected error, got nil")
			}

			if !strings.Contains(err.Error(), tt.expectedErrMsg) {
				t.Errorf("Expected error message to contain %q, got %q", tt.expectedErrMsg, err.Error())
			}
			if strings.Contains(err.Error(), "SECRET_SELECTION") {
				t.Errorf("Expected error message to redact sensitive content, got %q", err.Error())
			}
			if kind, _ := apperrors.KindOf(err); kind != tt.expectedKind {
				t.Errorf("kind = %q, want %q", kind, tt.expectedKind)
			}
		})
	}
}

func TestClient_Complete(t *testing.T) {
	var got RequestData
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"id":"resp_1","status":"completed","output":[
			{"type":"reasoning"},
			{"type":"message","role":"assistant","content":[{"type":"output_text","text":"<ans>Xin "},{"type":"output_text","text":"chào</ans>"}]}
		],"usage":{"total_tokens":12}}`)
	}))
	defer server.Close()

	client := NewClient("test-key", "gpt-4.1-nano").WithBaseURL(server.URL + "/")
	out, err := client.Complete(context.Background(), "translate hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "<ans>Xin chào</ans>" {
		t.Fatalf("out = %q", out)
	}
	if got.Model != "gpt-4.1-nano" || len(got.Input) != 1 || got.Input[0].Content != "translate hello" || got.Input[0].Role != "user" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestClient_Complete_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"resp_2","status":"completed","output":[]}`)
	}))
	defer server.Close()

	_, err := NewClient("k", "m").WithBaseURL(server.URL).Complete(context.Background(), "x")
	if !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClient_WithBaseURL_EmptyKeepsDefault(t *testing.T) {
	c := NewClient("k", "m").WithBaseURL("  ")
	if c.baseURL != DefaultBaseURL {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
}
