// internal/domain/models/content.go
package models

import "time"

// Thread types.
const (
	ThreadTypeDiscussion = "discussion"
	ThreadTypeQuestion   = "question"
)

// EditHistoryEntry is one prior revision of a thread or comment body.
type EditHistoryEntry struct {
	OriginalBody string    `json:"original_body"`
	Author       string    `json:"author,omitempty"`
	ReasonCode   string    `json:"reason_code,omitempty"`
	EditedAt     time.Time `json:"created_at"`
}

// Votes is the vote tally carried on forum content.
type Votes struct {
	UpCount int `json:"up_count"`
}

// Endorsement marks a comment as an accepted answer on a question thread.
type Endorsement struct {
	UserID string    `json:"user_id"`
	Time   time.Time `json:"time"`
}

// Thread is a top-level forum post as returned by the comments backend.
// The forum owns these records; this service reads them and enforces
// policy over them.
type Thread struct {
	ID               string             `json:"id"`
	CourseID         string             `json:"course_id"`
	AuthorID         string             `json:"user_id"`
	Username         string             `json:"username"`
	Anonymous        bool               `json:"anonymous"`
	AnonymousToPeers bool               `json:"anonymous_to_peers"`
	Type             string             `json:"thread_type"` // discussion | question
	TopicID          string             `json:"commentable_id"`
	GroupID          *int64             `json:"group_id,omitempty"`
	Title            string             `json:"title"`
	Body             string             `json:"body"`
	Pinned           bool               `json:"pinned"`
	Closed           bool               `json:"closed"`
	CloseReasonCode  string             `json:"close_reason_code,omitempty"`
	ClosedBy         string             `json:"closed_by,omitempty"` // username
	ClosingUserID    string             `json:"closing_user_id,omitempty"`
	EditHistory      []EditHistoryEntry `json:"edit_history,omitempty"`
	AbuseFlaggers    []string           `json:"abuse_flaggers,omitempty"`
	Votes            Votes              `json:"votes"`
	CommentCount     int                `json:"comment_count"`
	UnreadComments   int                `json:"unread_comment_count"`
	Read             bool               `json:"read"`
	Following        bool               `json:"following"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	LastActivityAt   time.Time          `json:"last_activity_at"`
}

// Comment is a reply under a thread, possibly with child comments up to
// the forum's bounded depth.
type Comment struct {
	ID               string             `json:"id"`
	CourseID         string             `json:"course_id"`
	ThreadID         string             `json:"thread_id"`
	ParentID         string             `json:"parent_id,omitempty"`
	AuthorID         string             `json:"user_id"`
	Username         string             `json:"username"`
	Anonymous        bool               `json:"anonymous"`
	AnonymousToPeers bool               `json:"anonymous_to_peers"`
	Body             string             `json:"body"`
	Endorsed         bool               `json:"endorsed"`
	Endorsement      *Endorsement       `json:"endorsement,omitempty"`
	EditHistory      []EditHistoryEntry `json:"edit_history,omitempty"`
	AbuseFlaggers    []string           `json:"abuse_flaggers,omitempty"`
	Votes            Votes              `json:"votes"`
	Children         []Comment          `json:"children,omitempty"`
	Depth            int                `json:"depth"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}
