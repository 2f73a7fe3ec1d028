package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"

	"github.com/oukeidos/transpop/internal/apperrors"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		kind apperrors.Kind
		msg  string
	}{
		{http.StatusTooManyRequests, apperrors.KindRateLimit, "Groq rate limit exceeded (429)"},
		{http.StatusUnauthorized, apperrors.KindAuth, "Groq authentication/authorization failed (401)"},
		{http.StatusForbidden, apperrors.KindAuth, "(403)"},
		{http.StatusNotFound, apperrors.KindBadRequest, "not found (404)"},
		{http.StatusBadGateway, apperrors.KindTransient, "server error (502)"},
		{http.StatusBadRequest, apperrors.KindBadRequest, "API error (400)"},
	}
	for _, tt := range tests {
		err := ClassifyStatus("Groq", tt.code, fmt.Sprintf("%d x", tt.code), errors.New("SECRET_SELECTION"))
		kind, _ := apperrors.KindOf(err)
		if kind != tt.kind {
			t.Errorf("%d: kind = %q, want %q", tt.code, kind, tt.kind)
		}
		if !strings.Contains(err.Error(), tt.msg) {
			t.Errorf("%d: message %q missing %q", tt.code, err.Error(), tt.msg)
		}
		if strings.Contains(err.Error(), "SECRET_SELECTION") {
			t.Errorf("%d: cause leaked into message", tt.code)
		}
	}
}

func TestClassifyTransport(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	if !apperrors.Is(ClassifyTransport("Ollama", refused), apperrors.KindUnavailable) {
		t.Fatalf("refused connection should be unavailable")
	}
	if !apperrors.Is(ClassifyTransport("Ollama", errors.New("tls: bad record")), apperrors.KindTransient) {
		t.Fatalf("other errors should be transient")
	}
	if err := ClassifyTransport("Ollama", context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("context errors must pass through, got %v", err)
	}
	if ClassifyTransport("Ollama", nil) != nil {
		t.Fatalf("nil in, nil out")
	}
}
