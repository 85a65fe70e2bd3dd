// internal/app/forum/client.go

// Package forum is the client for the external comments backend. The
// backend owns all thread and comment records; this service only issues
// the request shapes below and enforces policy over the results.
package forum

import (
	"context"
	"errors"

	"github.com/opencampus/discusshub/internal/domain/models"
)

// ErrNotFound reports a missing thread or comment. Deletions of absent
// content treat this as a no-op.
var ErrNotFound = errors.New("forum: not found")

// ErrMaintenance reports that the backend is in its disabled state.
var ErrMaintenance = errors.New("forum: backend under maintenance")

// StatusError is a non-404 failure from the backend. 4xx errors are
// surfaced to the client; 5xx become generic server errors.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return "forum: unexpected status " + e.Body
}

// ThreadCreate is the request shape for creating a thread.
type ThreadCreate struct {
	CourseID         string
	AuthorID         string
	Username         string
	TopicID          string
	Type             string
	Title            string
	Body             string
	Anonymous        bool
	AnonymousToPeers bool
	GroupID          *int64
}

// CommentCreate is the request shape for creating a comment. ParentID
// is empty for top-level comments.
type CommentCreate struct {
	CourseID         string
	ThreadID         string
	ParentID         string
	AuthorID         string
	Username         string
	Body             string
	Anonymous        bool
	AnonymousToPeers bool
}

// Thread list views.
const (
	ViewUnread      = "unread"
	ViewUnanswered  = "unanswered"
	ViewUnresponded = "unresponded"
)

// Thread orderings.
const (
	OrderLastActivity = "last_activity_at"
	OrderCommentCount = "comment_count"
	OrderVoteCount    = "vote_count"
)

// SearchParams filters a course thread listing or search.
type SearchParams struct {
	CourseID    string
	RequesterID string
	TopicIDs    []string
	Author      string
	ThreadType  string
	Flagged     bool
	Text        string
	Following   bool
	View        string
	OrderBy     string
	Page        int
	PageSize    int
	GroupID     *int64
}

// ThreadPage is one page of threads plus paging metadata.
type ThreadPage struct {
	Threads     []models.Thread
	Page        int
	NumPages    int
	TotalCount  int
	CorrectedText string
}

// CommentPage is one page of comments.
type CommentPage struct {
	Comments   []models.Comment
	Page       int
	NumPages   int
	TotalCount int
}

// UserCourseStats summarizes a user's forum activity in one course.
type UserCourseStats struct {
	Threads  int `json:"threads"`
	Comments int `json:"responses"`
	Replies  int `json:"replies"`
}

// Client is the full comments-backend contract this service consumes.
// Every call carries the course id so the backend can shard.
type Client interface {
	GetThread(ctx context.Context, id, courseID string, requesterID string, withResponses bool) (*models.Thread, error)
	CreateThread(ctx context.Context, req ThreadCreate) (*models.Thread, error)
	UpdateThread(ctx context.Context, id, courseID string, fields map[string]any) (*models.Thread, error)
	DeleteThread(ctx context.Context, id, courseID string) error

	GetComment(ctx context.Context, id, courseID string) (*models.Comment, error)
	CreateParentComment(ctx context.Context, req CommentCreate) (*models.Comment, error)
	CreateChildComment(ctx context.Context, req CommentCreate) (*models.Comment, error)
	UpdateComment(ctx context.Context, id, courseID string, fields map[string]any) (*models.Comment, error)
	DeleteComment(ctx context.Context, id, courseID string) error
	ThreadComments(ctx context.Context, threadID, courseID string, page, pageSize int) (CommentPage, error)
	UserComments(ctx context.Context, username, courseID string, page, pageSize int) (CommentPage, error)

	FlagThread(ctx context.Context, id, courseID, userID string, flagged bool) error
	FlagComment(ctx context.Context, id, courseID, userID string, flagged bool) error
	VoteThread(ctx context.Context, id, courseID, userID string, voted bool) error
	VoteComment(ctx context.Context, id, courseID, userID string, voted bool) error
	PinThread(ctx context.Context, id, courseID, userID string, pinned bool) error
	Subscribe(ctx context.Context, userID, threadID, courseID string, subscribed bool) error
	MarkThreadRead(ctx context.Context, userID, threadID, courseID string) error

	SearchThreads(ctx context.Context, params SearchParams) (ThreadPage, error)
	UserThreads(ctx context.Context, username, courseID string, page, pageSize int) (ThreadPage, error)
	UserActiveThreads(ctx context.Context, userID, courseID string, page, pageSize int) (ThreadPage, error)
	UserCourseStats(ctx context.Context, username, courseID string) (UserCourseStats, error)
	CommentableCounts(ctx context.Context, courseID string) (map[string]int, error)
	UpvotedIDs(ctx context.Context, userID, courseID string) ([]string, error)

	RetireUser(ctx context.Context, userID string) error
	ReplaceUsername(ctx context.Context, userID, newUsername string) error
}
