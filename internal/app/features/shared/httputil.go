// internal/app/features/shared/httputil.go
package shared

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/opencampus/discusshub/internal/app/forum"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/limits"
)

// Validation messages shared by the thread and comment payloads.
const (
	MsgRequired         = "This field is required."
	MsgBlank            = "This field may not be blank."
	MsgNotAllowedUpdate = "This field is not allowed in an update."
	MsgNotAllowedCreate = "This field is not allowed in an initial POST request."
	MsgNotEditable      = "This field is not editable."
	MsgInvalidEditCode  = "Invalid edit reason code"
	MsgInvalidCloseCode = "Invalid close reason code"
	MsgExpectedString   = "Expected a string value."
	MsgExpectedBool     = "Expected a boolean value."
	MsgExpectedInt      = "Expected an integer value."
)

// MergePatchContentType is required on PATCH requests.
const MergePatchContentType = "application/merge-patch+json"

// Payload is a decoded request body with per-field raw values, so
// validation can distinguish absent fields from blank ones and reject
// unknown fields by name.
type Payload map[string]json.RawMessage

// DecodePayload reads the request body as a JSON object.
func DecodePayload(r *http.Request) (Payload, error) {
	var p Payload
	body := io.LimitReader(r.Body, limits.MaxJSONBodySize)
	if err := json.NewDecoder(body).Decode(&p); err != nil {
		return nil, apierr.NewValidation("non_field_errors", "Could not parse request body as a JSON object.")
	}
	return p, nil
}

// String extracts a string field. A type mismatch records a field error
// and reports the field as absent.
func (p Payload) String(name string, errs map[string]string) (string, bool) {
	raw, ok := p[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		errs[name] = MsgExpectedString
		return "", false
	}
	return s, true
}

// Bool extracts a boolean field.
func (p Payload) Bool(name string, errs map[string]string) (bool, bool) {
	raw, ok := p[name]
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		errs[name] = MsgExpectedBool
		return false, false
	}
	return b, true
}

// Int64 extracts an integer field; null is treated as absent with the
// second return false and third true (explicit null).
func (p Payload) Int64(name string, errs map[string]string) (int64, bool) {
	raw, ok := p[name]
	if !ok {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		errs[name] = MsgExpectedInt
		return 0, false
	}
	return n, true
}

// RequireMergePatch enforces the PATCH content type.
func RequireMergePatch(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	parsed, _, err := mime.ParseMediaType(ct)
	if err != nil || parsed != MergePatchContentType {
		return apierr.NewUnsupportedMedia("Expected Content-Type '" + MergePatchContentType + "'.")
	}
	return nil
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// MapForumError translates forum client failures to API errors. 4xx
// statuses from the backend surface as validation failures; everything
// else is reported as a backend error without leaking details.
func MapForumError(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, forum.ErrNotFound):
		return apierr.NewNotFound(notFoundMsg)
	case errors.Is(err, forum.ErrMaintenance):
		return apierr.NewMaintenance()
	}
	var statusErr *forum.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
		return apierr.NewValidation("non_field_errors", "The discussion service rejected the request.")
	}
	return apierr.NewBackend("discussion service error")
}
