// Package contentpolicy computes per-field editability and delete
// permission for threads and comments. The editable-field set is the
// single source of truth: serialization exposes it to clients and
// update validation rejects any field outside it.
package contentpolicy

import (
	"sort"

	"github.com/opencampus/discusshub/internal/app/system/roles"
	"github.com/opencampus/discusshub/internal/domain/models"
)

// API field names for thread and comment payloads.
const (
	FieldAbuseFlagged     = "abuse_flagged"
	FieldVoted            = "voted"
	FieldRead             = "read"
	FieldFollowing        = "following"
	FieldRawBody          = "raw_body"
	FieldTopicID          = "topic_id"
	FieldType             = "type"
	FieldTitle            = "title"
	FieldClosed           = "closed"
	FieldPinned           = "pinned"
	FieldCloseReasonCode  = "close_reason_code"
	FieldEditReasonCode   = "edit_reason_code"
	FieldGroupID          = "group_id"
	FieldAnonymous        = "anonymous"
	FieldAnonymousToPeers = "anonymous_to_peers"
	FieldEndorsed         = "endorsed"
	FieldCourseID         = "course_id"
	FieldThreadID         = "thread_id"
	FieldParentID         = "parent_id"
)

// NonUpdatableThreadFields are accepted at creation and rejected on update.
var NonUpdatableThreadFields = []string{FieldCourseID}

// NonUpdatableCommentFields are accepted at creation and rejected on update.
var NonUpdatableCommentFields = []string{FieldThreadID, FieldParentID}

// FieldSet is a set of API field names.
type FieldSet map[string]bool

// Sorted returns the fields in sorted order for serialization.
func (s FieldSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Has reports membership.
func (s FieldSet) Has(field string) bool { return s[field] }

// Context is the resolved request context a field decision needs.
type Context struct {
	RoleSet roles.RoleSet
	Course  *models.Course

	// RequesterID is the forum-side user id of the requester.
	RequesterID string

	// Thread is the containing thread when evaluating a comment.
	Thread *models.Thread
}

func (c Context) privileged() bool { return c.RoleSet.HasModerationPrivilege }

// ThreadEditableFields returns the fields the requester may change on
// the thread.
func ThreadEditableFields(t *models.Thread, c Context) FieldSet {
	isAuthor := t.AuthorID == c.RequesterID

	// Fields anyone with read access can always toggle.
	set := FieldSet{
		FieldAbuseFlagged: true,
		FieldVoted:        true,
		FieldRead:         true,
		FieldFollowing:    true,
	}

	if t.Closed {
		// A closed thread is frozen except for moderator state fields.
		if c.privileged() {
			set[FieldClosed] = true
			set[FieldPinned] = true
			set[FieldCloseReasonCode] = true
		}
		return set
	}

	if isAuthor || c.privileged() {
		set[FieldRawBody] = true
		set[FieldTopicID] = true
		set[FieldType] = true
		set[FieldTitle] = true
	}
	if c.privileged() {
		set[FieldClosed] = true
		set[FieldPinned] = true
		set[FieldCloseReasonCode] = true
		if !isAuthor {
			set[FieldEditReasonCode] = true
		}
		if c.Course != nil && c.Course.DivisionEnabled() {
			set[FieldGroupID] = true
		}
	}
	if isAuthor && c.Course != nil {
		if c.Course.AllowAnonymous {
			set[FieldAnonymous] = true
		}
		if c.Course.AllowAnonymousToPeers {
			set[FieldAnonymousToPeers] = true
		}
	}
	return set
}

// CommentEditableFields returns the fields the requester may change on
// the comment, evaluated against the containing thread's closed state.
func CommentEditableFields(cm *models.Comment, c Context) FieldSet {
	isAuthor := cm.AuthorID == c.RequesterID

	set := FieldSet{
		FieldAbuseFlagged: true,
		FieldVoted:        true,
	}

	threadClosed := c.Thread != nil && c.Thread.Closed
	if threadClosed {
		return set
	}

	if isAuthor || c.privileged() {
		set[FieldRawBody] = true
	}
	if c.privileged() && !isAuthor {
		set[FieldEditReasonCode] = true
	}
	if isAuthor && c.Course != nil {
		if c.Course.AllowAnonymous {
			set[FieldAnonymous] = true
		}
		if c.Course.AllowAnonymousToPeers {
			set[FieldAnonymousToPeers] = true
		}
	}
	// Endorsement: moderators, or the thread author on a question thread.
	if c.privileged() ||
		(c.Thread != nil && c.Thread.Type == models.ThreadTypeQuestion && c.Thread.AuthorID == c.RequesterID) {
		set[FieldEndorsed] = true
	}
	return set
}

// CanDeleteThread reports delete permission: author or privileged.
func CanDeleteThread(t *models.Thread, c Context) bool {
	return t.AuthorID == c.RequesterID || c.privileged()
}

// CanDeleteComment reports delete permission: author or privileged.
func CanDeleteComment(cm *models.Comment, c Context) bool {
	return cm.AuthorID == c.RequesterID || c.privileged()
}

// ThreadInitializableFields returns the fields accepted when creating a
// thread: the editable set of a hypothetical open author-owned thread
// plus the immutable-after-creation fields.
func ThreadInitializableFields(c Context) FieldSet {
	hypothetical := &models.Thread{AuthorID: c.RequesterID}
	set := ThreadEditableFields(hypothetical, c)
	set[FieldCourseID] = true
	return set
}

// CommentInitializableFields returns the fields accepted when creating a
// comment.
func CommentInitializableFields(c Context) FieldSet {
	hypothetical := &models.Comment{AuthorID: c.RequesterID}
	set := CommentEditableFields(hypothetical, c)
	set[FieldThreadID] = true
	set[FieldParentID] = true
	return set
}
