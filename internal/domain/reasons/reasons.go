// internal/domain/reasons/reasons.go

// Package reasons holds the static moderation reason-code tables. Codes
// are opaque string keys; labels are the user-facing text resolved at the
// serialization boundary.
package reasons

// EditReasons maps edit reason codes to labels, shown when a moderator
// edits someone else's post.
var EditReasons = map[string]string{
	"grammar-spelling":    "Has grammar / spelling issues",
	"needs-clarity":       "Content needs clarity",
	"academic-integrity":  "Has academic integrity concern",
	"inappropriate":       "Contains inappropriate content",
	"violates-guidelines": "Violates community guidelines",
	"format-change":       "Formatting needed fixing",
}

// CloseReasons maps close reason codes to labels, shown when a thread is
// closed by a moderator.
var CloseReasons = map[string]string{
	"duplicate":     "Post is a duplicate",
	"off-topic":     "Post is off-topic",
	"answered":      "Question has been answered",
	"inappropriate": "Contains inappropriate content",
	"spam":          "Post is spam",
}

// EditReasonLabel resolves an edit reason code. The second return is
// false for unknown codes.
func EditReasonLabel(code string) (string, bool) {
	label, ok := EditReasons[code]
	return label, ok
}

// CloseReasonLabel resolves a close reason code.
func CloseReasonLabel(code string) (string, bool) {
	label, ok := CloseReasons[code]
	return label, ok
}

// ValidEditReason reports whether code exists in the edit reason table.
func ValidEditReason(code string) bool {
	_, ok := EditReasons[code]
	return ok
}

// ValidCloseReason reports whether code exists in the close reason table.
func ValidCloseReason(code string) bool {
	_, ok := CloseReasons[code]
	return ok
}
