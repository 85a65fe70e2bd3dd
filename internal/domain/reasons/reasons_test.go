package reasons

import "testing"

func TestEditReasonLabel(t *testing.T) {
	label, ok := EditReasonLabel("grammar-spelling")
	if !ok {
		t.Fatal("expected known edit reason code")
	}
	if label != "Has grammar / spelling issues" {
		t.Errorf("label: got %q", label)
	}

	if _, ok := EditReasonLabel("nonsense"); ok {
		t.Error("unknown code should not resolve")
	}
}

func TestCloseReasonLabel(t *testing.T) {
	label, ok := CloseReasonLabel("duplicate")
	if !ok {
		t.Fatal("expected known close reason code")
	}
	if label != "Post is a duplicate" {
		t.Errorf("label: got %q", label)
	}

	if _, ok := CloseReasonLabel(""); ok {
		t.Error("blank code should not resolve")
	}
}

func TestValidReasonPredicates(t *testing.T) {
	if !ValidEditReason("inappropriate") {
		t.Error("inappropriate should be a valid edit reason")
	}
	if ValidEditReason("duplicate") {
		t.Error("duplicate is a close reason, not an edit reason")
	}
	if !ValidCloseReason("spam") {
		t.Error("spam should be a valid close reason")
	}
	if ValidCloseReason("format-change") {
		t.Error("format-change is an edit reason, not a close reason")
	}
}
