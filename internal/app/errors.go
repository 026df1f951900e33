package app

import (
	"errors"
	"fmt"
	"net/http"

	"noveldesk/internal/identity"
	"noveldesk/internal/novel"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// mapError translates internal failures into wire responses. Every auth
// failure collapses to the same opaque 401; storage and crypto failures
// collapse to a generic 500 with no internal detail.
func mapError(err error) (status int, code, message string) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message
	}
	switch {
	case errors.Is(err, identity.ErrMissingCredential),
		errors.Is(err, identity.ErrInvalidSignature),
		errors.Is(err, identity.ErrMalformedPayload),
		errors.Is(err, identity.ErrIncompleteIdentity):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized"
	case errors.Is(err, novel.ErrInvalidPayload):
		return http.StatusBadRequest, "INVALID_DOCUMENT", "Invalid document payload"
	default:
		return http.StatusInternalServerError, "SERVER_ERROR", "Server error"
	}
}
