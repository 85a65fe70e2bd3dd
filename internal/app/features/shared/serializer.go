// internal/app/features/shared/serializer.go

// Package shared holds the serialization layer threads and comments
// have in common: author masking, rendered bodies, per-requester
// editable fields, and moderator-only annotations.
package shared

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/opencampus/discusshub/internal/app/policy/contentpolicy"
	"github.com/opencampus/discusshub/internal/app/system/render"
	"github.com/opencampus/discusshub/internal/app/system/roles"
	"github.com/opencampus/discusshub/internal/domain/models"
	"github.com/opencampus/discusshub/internal/domain/reasons"
)

// Labels attached to authors with standing in the course.
const (
	LabelStaff       = "Staff"
	LabelModerator   = "Moderator"
	LabelCommunityTA = "Community TA"
)

// BanScoper reports the effective active ban scope for a user in a
// course ("" when not banned).
type BanScoper interface {
	ActiveBanScope(ctx context.Context, userID primitive.ObjectID, courseKey models.CourseKey) (string, error)
}

// UserSource fetches user records for author annotations.
type UserSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Serializer turns forum records into API views for one requester.
type Serializer struct {
	Renderer *render.Renderer
	Roles    *roles.Resolver
	Users    UserSource
	Bans     BanScoper
}

// RequestEnv carries the per-request facts serialization depends on.
type RequestEnv struct {
	Requester *models.User
	RoleSet   roles.RoleSet
	Course    *models.Course

	// Upvoted holds the content ids the requester has upvoted.
	Upvoted map[string]bool
}

func (e RequestEnv) policyContext(thread *models.Thread) contentpolicy.Context {
	return contentpolicy.Context{
		RoleSet:     e.RoleSet,
		Course:      e.Course,
		RequesterID: e.Requester.ID.Hex(),
		Thread:      thread,
	}
}

// EditView is the latest body revision, shown to the author and to
// privileged requesters.
type EditView struct {
	Reason   string `json:"reason,omitempty"`
	EditedBy string `json:"editor_username,omitempty"`
	EditedAt string `json:"created_at"`
}

// ThreadView is the API shape of a thread for one requester.
type ThreadView struct {
	ID               string  `json:"id"`
	CourseID         string  `json:"course_id"`
	Type             string  `json:"type"`
	TopicID          string  `json:"topic_id"`
	GroupID          *int64  `json:"group_id"`
	Author           *string `json:"author"`
	AuthorLabel      *string `json:"author_label"`
	Anonymous        bool    `json:"anonymous"`
	AnonymousToPeers bool    `json:"anonymous_to_peers"`
	Title            string  `json:"title"`
	RawBody          string  `json:"raw_body"`
	RenderedBody     string  `json:"rendered_body"`
	Pinned           bool    `json:"pinned"`
	Closed           bool    `json:"closed"`
	CloseReason      *string `json:"close_reason,omitempty"`
	ClosedBy         *string `json:"closed_by,omitempty"`
	ClosedByLabel    *string `json:"closed_by_label,omitempty"`

	AbuseFlagged      bool `json:"abuse_flagged"`
	AbuseFlaggedCount *int `json:"abuse_flagged_count,omitempty"`
	Voted             bool `json:"voted"`
	VoteCount         int  `json:"vote_count"`
	CommentCount      int  `json:"comment_count"`
	UnreadComments    int  `json:"unread_comment_count"`
	Read              bool `json:"read"`
	Following         bool `json:"following"`

	EditableFields []string  `json:"editable_fields"`
	CanDelete      bool      `json:"can_delete"`
	LastEdit       *EditView `json:"last_edit,omitempty"`

	IsAuthorBanned bool    `json:"is_author_banned"`
	AuthorBanScope *string `json:"author_ban_scope,omitempty"`

	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
	LastActivityAt string `json:"last_activity_at"`
}

// CommentView is the API shape of a comment for one requester.
type CommentView struct {
	ID               string  `json:"id"`
	ThreadID         string  `json:"thread_id"`
	ParentID         *string `json:"parent_id"`
	Author           *string `json:"author"`
	AuthorLabel      *string `json:"author_label"`
	Anonymous        bool    `json:"anonymous"`
	AnonymousToPeers bool    `json:"anonymous_to_peers"`
	RawBody          string  `json:"raw_body"`
	RenderedBody     string  `json:"rendered_body"`

	Endorsed        bool    `json:"endorsed"`
	EndorsedBy      *string `json:"endorsed_by,omitempty"`
	EndorsedByLabel *string `json:"endorsed_by_label,omitempty"`
	EndorsedAt      *string `json:"endorsed_at,omitempty"`

	AbuseFlagged        bool  `json:"abuse_flagged"`
	AbuseFlaggedAnyUser *bool `json:"abuse_flagged_any_user,omitempty"`
	Voted               bool  `json:"voted"`
	VoteCount           int   `json:"vote_count"`

	EditableFields []string  `json:"editable_fields"`
	CanDelete      bool      `json:"can_delete"`
	LastEdit       *EditView `json:"last_edit,omitempty"`

	IsAuthorBanned bool    `json:"is_author_banned"`
	AuthorBanScope *string `json:"author_ban_scope,omitempty"`

	Children   []CommentView `json:"children,omitempty"`
	ChildCount int           `json:"child_count"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// Thread serializes one thread for the requester in env.
func (s *Serializer) Thread(ctx context.Context, t *models.Thread, env RequestEnv) (*ThreadView, error) {
	polCtx := env.policyContext(nil)
	requesterHex := env.Requester.ID.Hex()

	view := &ThreadView{
		ID:               t.ID,
		CourseID:         t.CourseID,
		Type:             t.Type,
		TopicID:          t.TopicID,
		GroupID:          t.GroupID,
		Anonymous:        t.Anonymous,
		AnonymousToPeers: t.AnonymousToPeers,
		Title:            t.Title,
		RawBody:          t.Body,
		Pinned:           t.Pinned,
		Closed:           t.Closed,
		Voted:            env.Upvoted[t.ID],
		VoteCount:        t.Votes.UpCount,
		CommentCount:     t.CommentCount,
		UnreadComments:   t.UnreadComments,
		Read:             t.Read,
		Following:        t.Following,
		EditableFields:   contentpolicy.ThreadEditableFields(t, polCtx).Sorted(),
		CanDelete:        contentpolicy.CanDeleteThread(t, polCtx),
		CreatedAt:        t.CreatedAt.Format(timeLayout),
		UpdatedAt:        t.UpdatedAt.Format(timeLayout),
		LastActivityAt:   t.LastActivityAt.Format(timeLayout),
	}

	view.RenderedBody = s.renderBody(t.Body, env)

	var err error
	view.Author, view.AuthorLabel, err = s.authorIdentity(ctx, t.AuthorID, t.Username, t.Anonymous, t.AnonymousToPeers, env)
	if err != nil {
		return nil, err
	}

	view.AbuseFlagged = containsID(t.AbuseFlaggers, requesterHex) ||
		(env.RoleSet.HasModerationPrivilege && len(t.AbuseFlaggers) > 0)
	if env.RoleSet.HasModerationPrivilege {
		n := len(t.AbuseFlaggers)
		view.AbuseFlaggedCount = &n
	}

	if t.Closed && (env.RoleSet.HasModerationPrivilege || t.AuthorID == requesterHex) {
		if label, ok := reasons.CloseReasonLabel(t.CloseReasonCode); ok {
			view.CloseReason = &label
		}
		if t.ClosedBy != "" {
			closedBy := t.ClosedBy
			view.ClosedBy = &closedBy
		}
		if t.ClosingUserID != "" {
			view.ClosedByLabel, err = s.authorLabel(ctx, t.ClosingUserID, env)
			if err != nil {
				return nil, err
			}
		}
	}

	view.LastEdit = lastEdit(t.EditHistory, t.AuthorID == requesterHex, env)

	view.IsAuthorBanned, view.AuthorBanScope, err = s.authorBanState(ctx, t.AuthorID, view.Author != nil, env)
	if err != nil {
		return nil, err
	}

	return view, nil
}

// Comment serializes one comment (and its children) for the requester.
// thread is the containing thread and drives the closed-state and
// endorsement gating.
func (s *Serializer) Comment(ctx context.Context, cm *models.Comment, thread *models.Thread, env RequestEnv) (*CommentView, error) {
	polCtx := env.policyContext(thread)
	requesterHex := env.Requester.ID.Hex()

	view := &CommentView{
		ID:               cm.ID,
		ThreadID:         cm.ThreadID,
		Anonymous:        cm.Anonymous,
		AnonymousToPeers: cm.AnonymousToPeers,
		RawBody:          cm.Body,
		Endorsed:         cm.Endorsed,
		Voted:            env.Upvoted[cm.ID],
		VoteCount:        cm.Votes.UpCount,
		EditableFields:   contentpolicy.CommentEditableFields(cm, polCtx).Sorted(),
		CanDelete:        contentpolicy.CanDeleteComment(cm, polCtx),
		ChildCount:       len(cm.Children),
		CreatedAt:        cm.CreatedAt.Format(timeLayout),
		UpdatedAt:        cm.UpdatedAt.Format(timeLayout),
	}
	if cm.ParentID != "" {
		parentID := cm.ParentID
		view.ParentID = &parentID
	}

	view.RenderedBody = s.renderBody(cm.Body, env)

	var err error
	view.Author, view.AuthorLabel, err = s.authorIdentity(ctx, cm.AuthorID, cm.Username, cm.Anonymous, cm.AnonymousToPeers, env)
	if err != nil {
		return nil, err
	}

	view.AbuseFlagged = containsID(cm.AbuseFlaggers, requesterHex) ||
		(env.RoleSet.HasModerationPrivilege && len(cm.AbuseFlaggers) > 0)
	if env.RoleSet.HasModerationPrivilege {
		any := len(cm.AbuseFlaggers) > 0
		view.AbuseFlaggedAnyUser = &any
	}

	if cm.Endorsed && cm.Endorsement != nil {
		if err := s.fillEndorsement(ctx, cm.Endorsement, thread, env, view); err != nil {
			return nil, err
		}
	}

	view.LastEdit = lastEdit(cm.EditHistory, cm.AuthorID == requesterHex, env)

	view.IsAuthorBanned, view.AuthorBanScope, err = s.authorBanState(ctx, cm.AuthorID, view.Author != nil, env)
	if err != nil {
		return nil, err
	}

	for i := range cm.Children {
		child, err := s.Comment(ctx, &cm.Children[i], thread, env)
		if err != nil {
			return nil, err
		}
		view.Children = append(view.Children, *child)
	}

	return view, nil
}

// Threads serializes a slice in order.
func (s *Serializer) Threads(ctx context.Context, ts []models.Thread, env RequestEnv) ([]ThreadView, error) {
	out := make([]ThreadView, 0, len(ts))
	for i := range ts {
		v, err := s.Thread(ctx, &ts[i], env)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// Comments serializes a slice in order.
func (s *Serializer) Comments(ctx context.Context, cms []models.Comment, thread *models.Thread, env RequestEnv) ([]CommentView, error) {
	out := make([]CommentView, 0, len(cms))
	for i := range cms {
		v, err := s.Comment(ctx, &cms[i], thread, env)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (s *Serializer) renderBody(raw string, env RequestEnv) string {
	if env.Course != nil && len(env.Course.SpamURLDomains) > 0 {
		html, _ := s.Renderer.RenderScrubbed(raw, env.Course.SpamURLDomains, env.Course.SpamReplacementBody)
		return html
	}
	return s.Renderer.Render(raw)
}

// authorIdentity applies the anonymity rules. A fully anonymous post
// hides the author from everyone; anonymous-to-peers hides it from
// non-privileged requesters only. The author always sees themselves.
func (s *Serializer) authorIdentity(ctx context.Context, authorID, username string, anonymous, anonymousToPeers bool, env RequestEnv) (*string, *string, error) {
	isRequester := authorID == env.Requester.ID.Hex()

	hidden := anonymous || (anonymousToPeers && !env.RoleSet.HasModerationPrivilege)
	if hidden && !isRequester {
		return nil, nil, nil
	}

	name := username
	label, err := s.authorLabel(ctx, authorID, env)
	if err != nil {
		return nil, nil, err
	}
	return &name, label, nil
}

// authorLabel annotates authors holding standing in the course.
func (s *Serializer) authorLabel(ctx context.Context, authorID string, env RequestEnv) (*string, error) {
	oid, err := primitive.ObjectIDFromHex(authorID)
	if err != nil {
		return nil, nil
	}
	author, err := s.Users.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, nil
	}

	set, err := s.Roles.Resolve(ctx, author, env.Course.Key())
	if err != nil {
		return nil, err
	}
	return roleLabel(set), nil
}

func roleLabel(set roles.RoleSet) *string {
	switch {
	case set.IsGlobalStaff || set.IsCourseStaff:
		label := LabelStaff
		return &label
	case set.IsModerator || set.IsGroupModerator:
		label := LabelModerator
		return &label
	case set.IsCommunityTA:
		label := LabelCommunityTA
		return &label
	}
	return nil
}

// authorBanState annotates content with the author's effective ban.
// When the author is anonymised to this requester the annotation is
// suppressed entirely, so a ban cannot out an anonymous author.
func (s *Serializer) authorBanState(ctx context.Context, authorID string, authorVisible bool, env RequestEnv) (bool, *string, error) {
	if !authorVisible {
		return false, nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(authorID)
	if err != nil {
		return false, nil, nil
	}
	scope, err := s.Bans.ActiveBanScope(ctx, oid, env.Course.Key())
	if err != nil {
		return false, nil, err
	}
	if scope == "" {
		return false, nil, nil
	}
	return true, &scope, nil
}

// fillEndorsement resolves the endorsing user. The endorser identity is
// hidden when the thread is anonymised to this requester and the
// endorser holds no privileged role; the timestamp always shows.
func (s *Serializer) fillEndorsement(ctx context.Context, e *models.Endorsement, thread *models.Thread, env RequestEnv, view *CommentView) error {
	at := e.Time.Format(timeLayout)
	view.EndorsedAt = &at

	oid, err := primitive.ObjectIDFromHex(e.UserID)
	if err != nil {
		return nil
	}
	endorser, err := s.Users.GetByID(ctx, oid)
	if err != nil {
		return err
	}
	if endorser == nil {
		return nil
	}
	set, err := s.Roles.Resolve(ctx, endorser, env.Course.Key())
	if err != nil {
		return err
	}

	threadHidden := thread != nil &&
		(thread.Anonymous || (thread.AnonymousToPeers && !env.RoleSet.HasModerationPrivilege))
	if threadHidden && !set.HasModerationPrivilege {
		return nil
	}

	view.EndorsedBy = &endorser.Username
	view.EndorsedByLabel = roleLabel(set)
	return nil
}

// lastEdit returns the most recent revision when the requester may see
// edit history: the author or a privileged user.
func lastEdit(history []models.EditHistoryEntry, isAuthor bool, env RequestEnv) *EditView {
	if len(history) == 0 {
		return nil
	}
	if !isAuthor && !env.RoleSet.HasModerationPrivilege {
		return nil
	}
	last := history[len(history)-1]
	reason, _ := reasons.EditReasonLabel(last.ReasonCode)
	return &EditView{
		Reason:   reason,
		EditedBy: last.Author,
		EditedAt: last.EditedAt.Format(timeLayout),
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
