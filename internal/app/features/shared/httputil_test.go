package shared

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opencampus/discusshub/internal/app/forum"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
)

func TestDecodePayload(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(
		`{"title":"hello","closed":true,"group_id":7}`))
	p, err := DecodePayload(r)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}

	errs := map[string]string{}
	if s, ok := p.String("title", errs); !ok || s != "hello" {
		t.Errorf("String(title): %q, %v", s, ok)
	}
	if b, ok := p.Bool("closed", errs); !ok || !b {
		t.Errorf("Bool(closed): %v, %v", b, ok)
	}
	if n, ok := p.Int64("group_id", errs); !ok || n != 7 {
		t.Errorf("Int64(group_id): %d, %v", n, ok)
	}
	if len(errs) != 0 {
		t.Errorf("unexpected field errors: %v", errs)
	}

	// Absent fields report !ok without a field error.
	if _, ok := p.String("missing", errs); ok {
		t.Error("absent field reported present")
	}
	if len(errs) != 0 {
		t.Errorf("absent field recorded an error: %v", errs)
	}
}

func TestDecodePayload_Invalid(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`not json`))
	_, err := DecodePayload(r)
	if !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestPayload_TypeMismatches(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(
		`{"title":42,"closed":"yes","group_id":"seven"}`))
	p, err := DecodePayload(r)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}

	errs := map[string]string{}
	if _, ok := p.String("title", errs); ok {
		t.Error("mismatched string reported ok")
	}
	if _, ok := p.Bool("closed", errs); ok {
		t.Error("mismatched bool reported ok")
	}
	if _, ok := p.Int64("group_id", errs); ok {
		t.Error("mismatched int reported ok")
	}
	if errs["title"] != MsgExpectedString {
		t.Errorf("title error: %q", errs["title"])
	}
	if errs["closed"] != MsgExpectedBool {
		t.Errorf("closed error: %q", errs["closed"])
	}
	if errs["group_id"] != MsgExpectedInt {
		t.Errorf("group_id error: %q", errs["group_id"])
	}
}

func TestRequireMergePatch(t *testing.T) {
	r := httptest.NewRequest("PATCH", "/", nil)
	r.Header.Set("Content-Type", "application/merge-patch+json")
	if err := RequireMergePatch(r); err != nil {
		t.Errorf("merge-patch content type rejected: %v", err)
	}

	r.Header.Set("Content-Type", "application/merge-patch+json; charset=utf-8")
	if err := RequireMergePatch(r); err != nil {
		t.Errorf("content type with parameters rejected: %v", err)
	}

	r.Header.Set("Content-Type", "application/json")
	err := RequireMergePatch(r)
	if !apierr.IsKind(err, apierr.KindUnsupportedMedia) {
		t.Errorf("plain JSON: got %v, want unsupported media", err)
	}

	r.Header.Del("Content-Type")
	if err := RequireMergePatch(r); !apierr.IsKind(err, apierr.KindUnsupportedMedia) {
		t.Errorf("missing content type: got %v, want unsupported media", err)
	}
}

func TestMapForumError(t *testing.T) {
	if err := MapForumError(nil, "gone"); err != nil {
		t.Errorf("nil error mapped to %v", err)
	}

	err := MapForumError(forum.ErrNotFound, "Thread not found.")
	if !apierr.IsKind(err, apierr.KindNotFound) {
		t.Errorf("not found: got %v", err)
	}
	if err.Error() != "Thread not found." {
		t.Errorf("not found message: %q", err.Error())
	}

	err = MapForumError(forum.ErrMaintenance, "gone")
	if !apierr.IsKind(err, apierr.KindBackendMaintenance) {
		t.Errorf("maintenance: got %v", err)
	}

	err = MapForumError(&forum.StatusError{StatusCode: 400, Body: "bad"}, "gone")
	if !apierr.IsKind(err, apierr.KindValidation) {
		t.Errorf("4xx: got %v", err)
	}

	err = MapForumError(&forum.StatusError{StatusCode: 502, Body: "bad gateway"}, "gone")
	if !apierr.IsKind(err, apierr.KindBackend) {
		t.Errorf("5xx: got %v", err)
	}

	err = MapForumError(errors.New("dial tcp: refused"), "gone")
	if !apierr.IsKind(err, apierr.KindBackend) {
		t.Errorf("transport error: got %v", err)
	}
}
