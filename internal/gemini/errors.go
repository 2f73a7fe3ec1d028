package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/oukeidos/transpop/internal/apperrors"
	"github.com/oukeidos/transpop/internal/httpclient"
)

const label = "Gemini"

// classifyGeminiError maps SDK failures onto the shared provider error kinds.
// Gemini reports a bad key as 400, so that case is singled out.
func classifyGeminiError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return httpclient.ClassifyTransport(label, err)
	}

	cause := fmt.Errorf("gemini generate content failed: %w", err)
	switch {
	case gerr.Code == http.StatusBadRequest && invalidKey(gerr):
		return apperrors.New(apperrors.KindAuth, "Gemini rejected the API key (400): please check it with `transpop env status`.", cause)
	case gerr.Code == http.StatusNotFound:
		return apperrors.New(apperrors.KindBadRequest, "Gemini model not found or no access (404): pick another model in settings.", cause)
	}
	return httpclient.ClassifyStatus(label, gerr.Code, http.StatusText(gerr.Code), cause)
}

func invalidKey(gerr *googleapi.Error) bool {
	if strings.Contains(gerr.Message, "API key") {
		return true
	}
	for _, item := range gerr.Errors {
		if item.Reason == "keyInvalid" || strings.Contains(item.Message, "API key") {
			return true
		}
	}
	return false
}
