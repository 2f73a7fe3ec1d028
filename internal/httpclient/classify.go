package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"github.com/oukeidos/transpop/internal/apperrors"
)

// ClassifyStatus maps a non-2xx provider response to an apperrors kind.
// label is the provider's display name. cause never reaches SafeMessage.
func ClassifyStatus(label string, statusCode int, status string, cause error) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return apperrors.New(
			apperrors.KindRateLimit,
			fmt.Sprintf("%s rate limit exceeded (429): please try again later.", label),
			cause,
		)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return apperrors.New(
			apperrors.KindAuth,
			fmt.Sprintf("%s authentication/authorization failed (%d): please verify your API key and permissions.", label, statusCode),
			cause,
		)
	case statusCode == http.StatusNotFound:
		return apperrors.New(
			apperrors.KindBadRequest,
			fmt.Sprintf("%s resource not found (404).", label),
			cause,
		)
	case statusCode >= 500:
		return apperrors.New(
			apperrors.KindTransient,
			fmt.Sprintf("%s server error (%d): please try again later.", label, statusCode),
			cause,
		)
	default:
		return apperrors.New(
			apperrors.KindBadRequest,
			fmt.Sprintf("%s API error (%d): %s", label, statusCode, status),
			cause,
		)
	}
}

// ClassifyTransport maps a failed round trip. A refused connection means the
// provider is not running; context errors are returned unchanged.
func ClassifyTransport(label string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	cause := fmt.Errorf("request failed: %w", err)
	var opErr *net.OpError
	if errors.Is(err, syscall.ECONNREFUSED) || (errors.As(err, &opErr) && opErr.Op == "dial") {
		return apperrors.New(
			apperrors.KindUnavailable,
			fmt.Sprintf("%s is not reachable. Is it running?", label),
			cause,
		)
	}
	return apperrors.New(
		apperrors.KindTransient,
		fmt.Sprintf("%s request failed due to a temporary network/runtime error.", label),
		cause,
	)
}
