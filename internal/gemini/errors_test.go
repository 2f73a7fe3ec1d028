package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/oukeidos/transpop/internal/apperrors"
	"google.golang.org/api/googleapi"
)

func TestClassifyGeminiError_CodeMapping(t *testing.T) {
	tests := []struct {
		code int
		kind apperrors.Kind
	}{
		{401, apperrors.KindAuth},
		{403, apperrors.KindAuth},
		{400, apperrors.KindBadRequest},
		{404, apperrors.KindBadRequest},
		{429, apperrors.KindRateLimit},
		{503, apperrors.KindTransient},
		{502, apperrors.KindTransient},
		{418, apperrors.KindBadRequest},
	}
	for _, tt := range tests {
		err := classifyGeminiError(&googleapi.Error{Code: tt.code})
		assertErrorKind(t, err, tt.kind)
	}
}

func TestClassifyGeminiError_Unknown(t *testing.T) {
	err := classifyGeminiError(errors.New("boom"))
	assertErrorKind(t, err, apperrors.KindTransient)
	if classifyGeminiError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestClassifyGeminiError_InvalidKeyIsAuth(t *testing.T) {
	err := classifyGeminiError(&googleapi.Error{Code: 400, Message: "API key not valid. Please pass a valid API key."})
	assertErrorKind(t, err, apperrors.KindAuth)

	err = classifyGeminiError(&googleapi.Error{Code: 400, Errors: []googleapi.ErrorItem{{Reason: "keyInvalid"}}})
	assertErrorKind(t, err, apperrors.KindAuth)

	err = classifyGeminiError(&googleapi.Error{Code: 400, Message: "Request contains an invalid argument."})
	assertErrorKind(t, err, apperrors.KindBadRequest)
}

func TestClassifyGeminiError_CancelPassesThrough(t *testing.T) {
	err := classifyGeminiError(fmt.Errorf("stream: %w", context.Canceled))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		t.Fatalf("cancellation should not be classified: %v", err)
	}
}

func TestClassifyGeminiError_DoesNotExposeRawMessage(t *testing.T) {
	err := classifyGeminiError(errors.New("SECRET_SELECTION"))
	if strings.Contains(err.Error(), "SECRET_SELECTION") {
		t.Fatalf("expected safe message, got %q", err.Error())
	}
}

func assertErrorKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected apperrors.Error, got %T", err)
	}
	if appErr.Kind != kind {
		t.Fatalf("expected kind %s, got %s", kind, appErr.Kind)
	}
}
