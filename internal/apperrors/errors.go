package apperrors

import (
	"errors"
	"strings"
)

type Kind string

const (
	KindTransient   Kind = "transient"
	KindRateLimit   Kind = "rate_limit"
	KindAuth        Kind = "auth"
	KindValidation  Kind = "validation"
	KindBadRequest  Kind = "bad_request"
	KindUnavailable Kind = "unavailable"
)

type Error struct {
	Kind Kind
	// SafeMessage is intended for user-facing output, logs and the bridge.
	SafeMessage string
	// Cause keeps the original internal error for troubleshooting.
	// It never crosses the bridge.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindTransient:
		return "Temporary upstream error. Please try again."
	case KindRateLimit:
		return "Rate limit exceeded. Please try again later."
	case KindAuth:
		return "Authentication failed. Please verify your API key and permissions."
	case KindValidation:
		return "Invalid input."
	case KindBadRequest:
		return "Request rejected by upstream API."
	case KindUnavailable:
		return "Provider is not reachable."
	default:
		return "Request failed."
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = defaultSafeMessage(kind)
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

func Validation(err error) error {
	return New(KindValidation, "", err)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// FromWire rebuilds an error received over the bridge.
// An unknown or empty kind yields a plain error with the message.
func FromWire(kind, message string) error {
	switch k := Kind(kind); k {
	case KindTransient, KindRateLimit, KindAuth, KindValidation, KindBadRequest, KindUnavailable:
		return &Error{Kind: k, SafeMessage: message}
	default:
		if strings.TrimSpace(message) == "" {
			message = defaultSafeMessage("")
		}
		return errors.New(message)
	}
}
