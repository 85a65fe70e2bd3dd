// internal/app/system/apierr/apierr.go

// Package apierr defines the error kinds surfaced by the HTTP API and
// their JSON encoding. Handlers recover validation and authorization
// failures here only; stores and services return these errors upward
// untranslated.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Kind classifies an API error.
type Kind int

const (
	KindValidation Kind = iota
	KindUnauthenticated
	KindAuthorization
	KindFeatureDisabled
	KindNotFound
	KindConflict
	KindRateLimited
	KindCaptcha
	KindBackend
	KindBackendMaintenance
	KindUnsupportedMedia
)

// Error is an API-visible failure. FieldErrors carries the field-keyed
// message map for validation failures; ConflictID carries the existing
// entity id for duplicate-state conflicts (e.g. an already-active ban).
type Error struct {
	Kind        Kind
	Message     string
	FieldErrors map[string]string
	ConflictID  string
}

func (e *Error) Error() string { return e.Message }

// NewValidation returns a validation error with a single field message.
func NewValidation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, FieldErrors: map[string]string{field: msg}}
}

// NewValidationMap returns a validation error carrying a full field map.
func NewValidationMap(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", FieldErrors: fields}
}

// NewUnauthenticated returns a 401-mapped error: the requester has no
// usable identity, as opposed to an identity without permission.
func NewUnauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// NewAuthorization returns a 403-mapped error.
func NewAuthorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// NewFeatureDisabled returns an error for an operation whose feature
// flag is off for the course.
func NewFeatureDisabled(msg string) *Error {
	return &Error{Kind: KindFeatureDisabled, Message: msg}
}

// NewNotFound returns a 404-mapped error.
func NewNotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// NewConflict returns a 409-mapped error. id identifies the conflicting
// entity when the requester is allowed to see it.
func NewConflict(msg, id string) *Error {
	return &Error{Kind: KindConflict, Message: msg, ConflictID: id}
}

// NewRateLimited returns a 429-mapped error.
func NewRateLimited(msg string) *Error {
	return &Error{Kind: KindRateLimited, Message: msg}
}

// NewCaptcha returns an error for a missing or invalid captcha token.
func NewCaptcha(msg string) *Error {
	return &Error{Kind: KindCaptcha, Message: msg}
}

// NewBackend wraps a forum backend failure.
func NewBackend(msg string) *Error {
	return &Error{Kind: KindBackend, Message: msg}
}

// NewMaintenance reports the forum backend's disabled/maintenance state.
func NewMaintenance() *Error {
	return &Error{Kind: KindBackendMaintenance, Message: "discussion service is temporarily unavailable"}
}

// NewUnsupportedMedia returns a 415-mapped error.
func NewUnsupportedMedia(msg string) *Error {
	return &Error{Kind: KindUnsupportedMedia, Message: msg}
}

// Status maps an error kind to its HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindAuthorization, KindFeatureDisabled:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindCaptcha:
		return http.StatusBadRequest
	case KindBackendMaintenance:
		return http.StatusServiceUnavailable
	case KindUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error       string            `json:"error"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	ConflictID  string            `json:"conflict_id,omitempty"`
}

// Write encodes err as the JSON error body with the mapped status.
// Unrecognized errors become a generic 500 without leaking internals.
func Write(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(errorBody{Error: "internal error"})
		return
	}

	w.WriteHeader(apiErr.Status())
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:       apiErr.Message,
		FieldErrors: apiErr.FieldErrors,
		ConflictID:  apiErr.ConflictID,
	})
}

// IsKind reports whether err is an API error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
