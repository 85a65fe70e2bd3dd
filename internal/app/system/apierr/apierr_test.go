package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NewValidation("title", "This field is required."), http.StatusBadRequest},
		{NewUnauthenticated("who are you"), http.StatusUnauthorized},
		{NewAuthorization("nope"), http.StatusForbidden},
		{NewFeatureDisabled("off"), http.StatusForbidden},
		{NewNotFound("gone"), http.StatusNotFound},
		{NewConflict("duplicate", "abc"), http.StatusConflict},
		{NewRateLimited("slow down"), http.StatusTooManyRequests},
		{NewCaptcha("bad token"), http.StatusBadRequest},
		{NewBackend("boom"), http.StatusInternalServerError},
		{NewMaintenance(), http.StatusServiceUnavailable},
		{NewUnsupportedMedia("wrong type"), http.StatusUnsupportedMediaType},
	}
	for _, c := range cases {
		if got := c.err.Status(); got != c.want {
			t.Errorf("kind %d: status %d, want %d", c.err.Kind, got, c.want)
		}
	}
}

func TestWrite_Validation(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, NewValidation("raw_body", "This field may not be blank."))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", rec.Code)
	}
	var body struct {
		Error       string            `json:"error"`
		FieldErrors map[string]string `json:"field_errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.FieldErrors["raw_body"] != "This field may not be blank." {
		t.Errorf("field_errors: got %v", body.FieldErrors)
	}
}

func TestWrite_ConflictCarriesID(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, NewConflict("An active ban already exists.", "64f0c2"))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status: got %d", rec.Code)
	}
	var body struct {
		ConflictID string `json:"conflict_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ConflictID != "64f0c2" {
		t.Errorf("conflict_id: got %q", body.ConflictID)
	}
}

func TestWrite_UnknownError(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, errors.New("mongo: connection reset"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "internal error" {
		t.Errorf("internal details leaked: %q", body.Error)
	}
}

func TestIsKind(t *testing.T) {
	wrapped := fmt.Errorf("handling request: %w", NewNotFound("Thread not found."))
	if !IsKind(wrapped, KindNotFound) {
		t.Error("IsKind should see through wrapping")
	}
	if IsKind(wrapped, KindConflict) {
		t.Error("IsKind matched the wrong kind")
	}
	if IsKind(errors.New("plain"), KindNotFound) {
		t.Error("IsKind matched a non-API error")
	}
}
