// internal/app/features/moderation/service.go

// Package moderation implements the ban state machine and the bulk
// cleanup entry points, and exposes them over HTTP.
package moderation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/forum"
	"github.com/opencampus/discusshub/internal/app/store/audit"
	"github.com/opencampus/discusshub/internal/app/store/bans"
	"github.com/opencampus/discusshub/internal/app/store/courses"
	"github.com/opencampus/discusshub/internal/app/store/jobs"
	"github.com/opencampus/discusshub/internal/app/store/users"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/auditlog"
	"github.com/opencampus/discusshub/internal/app/system/roles"
	"github.com/opencampus/discusshub/internal/app/system/txn"
	"github.com/opencampus/discusshub/internal/domain/models"
)

// Service executes moderation actions. All ban-state writes and their
// audit rows run inside one transaction where the deployment allows.
type Service struct {
	DB      *mongo.Database
	Log     *zap.Logger
	Users   *users.Store
	Courses *courses.Store
	Roles   *roles.Resolver
	Bans    *bans.Store
	Jobs    *jobs.Store
	Forum   forum.Client
	Audit   *auditlog.Logger
}

// BanRequest is a validated ban_user call.
type BanRequest struct {
	Username string
	Scope    string // models.ScopeCourse or models.ScopeOrganization
	CourseID string // required for course scope
	OrgKey   string // required for organization scope
	Reason   string
}

// BanResult reports what the state machine did.
type BanResult struct {
	Ban         *models.Ban
	Reactivated bool
}

// UnbanResult reports a deactivation or, for course-level moderators
// acting on an org ban, a per-course exception.
type UnbanResult struct {
	Ban              *models.Ban
	Exception        *models.BanException
	ExceptionCreated bool
}

// BulkDeleteRequest is a validated bulk cleanup call.
type BulkDeleteRequest struct {
	Username  string
	CourseIDs []string
	Ban       bool
	BanScope  string // when Ban is set; defaults to course scope
	Reason    string
}

// BulkDeleteReceipt is returned to the caller with 202 Accepted.
type BulkDeleteReceipt struct {
	TaskID       string `json:"task_id"`
	ThreadCount  int    `json:"thread_count"`
	CommentCount int    `json:"comment_count"`
}

// requireCoursePrivilege checks the actor may moderate the course, and
// that the course has the discussion ban feature enabled.
func (s *Service) requireCoursePrivilege(ctx context.Context, actor *models.User, courseID string) (*models.Course, error) {
	key, err := models.ParseCourseKey(courseID)
	if err != nil {
		return nil, apierr.NewValidation("course_id", "Not a valid course id.")
	}
	course, err := s.Courses.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, apierr.NewNotFound("Course not found.")
	}
	set, err := s.Roles.Resolve(ctx, actor, key)
	if err != nil {
		return nil, err
	}
	if !set.HasModerationPrivilege {
		return nil, apierr.NewAuthorization("You do not have moderation privileges in this course.")
	}
	if !course.EnableDiscussionBan {
		return nil, apierr.NewFeatureDisabled("Discussion bans are not enabled for this course.")
	}
	return course, nil
}

func requireGlobalStaff(actor *models.User) error {
	if !actor.IsStaff {
		return apierr.NewAuthorization("Organization-wide moderation requires staff access.")
	}
	return nil
}

func (s *Service) targetByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, apierr.NewValidation("username", "This field is required.")
	}
	target, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apierr.NewNotFound("User not found.")
	}
	return target, nil
}

// BanUser creates or reactivates a ban.
func (s *Service) BanUser(ctx context.Context, actor *models.User, req BanRequest) (*BanResult, error) {
	if req.Reason == "" {
		return nil, apierr.NewValidation("reason", "This field is required.")
	}

	var scopeKey string
	switch req.Scope {
	case models.ScopeCourse:
		if req.CourseID == "" {
			return nil, apierr.NewValidation("course_id", "This field is required.")
		}
		if _, err := s.requireCoursePrivilege(ctx, actor, req.CourseID); err != nil {
			return nil, err
		}
		scopeKey = req.CourseID
	case models.ScopeOrganization:
		if req.OrgKey == "" {
			return nil, apierr.NewValidation("org_key", "This field is required.")
		}
		if err := requireGlobalStaff(actor); err != nil {
			return nil, err
		}
		scopeKey = req.OrgKey
	default:
		return nil, apierr.NewValidation("scope", `Must be "course" or "organization".`)
	}

	target, err := s.targetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if target.IsStaff {
		return nil, apierr.NewAuthorization("Staff users cannot be banned.")
	}

	var result BanResult
	err = txn.Run(ctx, s.DB, s.Log, func(ctx context.Context) error {
		ban, reactivated, err := s.Bans.CreateOrReactivate(ctx, target.ID, req.Scope, scopeKey, req.Reason, actor.ID)
		if err != nil {
			return err
		}
		result = BanResult{Ban: ban, Reactivated: reactivated}
		return s.Audit.Ban(ctx, target.ID, actor.ID, courseForScope(req.Scope, scopeKey), req.Scope, req.Reason, audit.SourceHuman, reactivated)
	})
	if err != nil {
		if errors.Is(err, bans.ErrDuplicateActiveBan) {
			existing, findErr := s.Bans.FindActive(ctx, target.ID, req.Scope, scopeKey)
			if findErr == nil && existing != nil {
				return nil, apierr.NewConflict("An active ban already exists for this user.", existing.ID.Hex())
			}
			return nil, apierr.NewConflict("An active ban already exists for this user.", "")
		}
		return nil, err
	}
	return &result, nil
}

// courseForScope maps a scope key to the audit row's course field. Org
// events carry no course id.
func courseForScope(scope, key string) string {
	if scope == models.ScopeCourse {
		return key
	}
	return ""
}

// UnbanUser lifts the active ban matching (username, scope, key).
func (s *Service) UnbanUser(ctx context.Context, actor *models.User, req BanRequest) (*UnbanResult, error) {
	target, err := s.targetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	var scopeKey string
	switch req.Scope {
	case models.ScopeCourse:
		if req.CourseID == "" {
			return nil, apierr.NewValidation("course_id", "This field is required.")
		}
		if _, err := s.requireCoursePrivilege(ctx, actor, req.CourseID); err != nil {
			return nil, err
		}
		scopeKey = req.CourseID
	case models.ScopeOrganization:
		if req.OrgKey == "" {
			return nil, apierr.NewValidation("org_key", "This field is required.")
		}
		if err := requireGlobalStaff(actor); err != nil {
			return nil, err
		}
		scopeKey = req.OrgKey
	default:
		return nil, apierr.NewValidation("scope", `Must be "course" or "organization".`)
	}

	ban, err := s.Bans.FindActive(ctx, target.ID, req.Scope, scopeKey)
	if err != nil {
		return nil, err
	}
	if ban == nil {
		return nil, apierr.NewNotFound("No active ban found.")
	}
	return s.deactivate(ctx, actor, ban, req.Reason)
}

// UnbanByID lifts a ban by id. Acting on an organization ban with a
// course_id produces a per-course exception instead of a full lift;
// the org ban itself can only be deactivated by global staff, and only
// when no course_id narrows the request.
func (s *Service) UnbanByID(ctx context.Context, actor *models.User, banID, courseID, reason string) (*UnbanResult, error) {
	if reason == "" {
		return nil, apierr.NewValidation("reason", "This field is required.")
	}
	oid, err := primitive.ObjectIDFromHex(banID)
	if err != nil {
		return nil, apierr.NewValidation("ban_id", "Not a valid ban id.")
	}
	ban, err := s.Bans.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if ban == nil {
		return nil, apierr.NewNotFound("Ban not found.")
	}
	if !ban.IsActive {
		return nil, apierr.NewConflict("Ban is not active.", ban.ID.Hex())
	}

	switch ban.Scope {
	case models.ScopeCourse:
		if _, err := s.requireCoursePrivilege(ctx, actor, ban.CourseID); err != nil {
			return nil, err
		}
		return s.deactivate(ctx, actor, ban, reason)

	case models.ScopeOrganization:
		if courseID == "" {
			if !actor.IsStaff {
				return nil, apierr.NewAuthorization("Lifting an organization ban requires staff access.")
			}
			return s.deactivate(ctx, actor, ban, reason)
		}
		key, err := models.ParseCourseKey(courseID)
		if err != nil {
			return nil, apierr.NewValidation("course_id", "Not a valid course id.")
		}
		if key.Org() != ban.OrgKey {
			return nil, apierr.NewValidation("course_id", "Course is not in the ban's organization.")
		}
		if _, err := s.requireCoursePrivilege(ctx, actor, courseID); err != nil {
			return nil, err
		}
		return s.exception(ctx, actor, ban, courseID, reason)
	}
	return nil, apierr.NewValidation("scope", "Unknown ban scope.")
}

func (s *Service) deactivate(ctx context.Context, actor *models.User, ban *models.Ban, reason string) (*UnbanResult, error) {
	var result UnbanResult
	err := txn.Run(ctx, s.DB, s.Log, func(ctx context.Context) error {
		updated, err := s.Bans.Deactivate(ctx, ban, actor.ID)
		if err != nil {
			return err
		}
		result.Ban = updated
		return s.Audit.Unban(ctx, ban.UserID, actor.ID, ban.CourseID, ban.Scope, reason, audit.SourceHuman)
	})
	if err != nil {
		if errors.Is(err, bans.ErrBanInactive) {
			return nil, apierr.NewConflict("Ban is not active.", ban.ID.Hex())
		}
		return nil, err
	}
	return &result, nil
}

func (s *Service) exception(ctx context.Context, actor *models.User, ban *models.Ban, courseID, reason string) (*UnbanResult, error) {
	var result UnbanResult
	err := txn.Run(ctx, s.DB, s.Log, func(ctx context.Context) error {
		exc, created, err := s.Bans.CreateException(ctx, ban, courseID, actor.ID, reason)
		if err != nil {
			return err
		}
		result = UnbanResult{Ban: ban, Exception: exc, ExceptionCreated: created}
		if !created {
			return nil
		}
		return s.Audit.BanException(ctx, ban.UserID, actor.ID, courseID, reason, ban.ID)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// BulkDelete counts the target's content in the named courses, queues a
// deletion job, and returns the task handle. The deletion itself runs
// in the background worker.
func (s *Service) BulkDelete(ctx context.Context, actor *models.User, req BulkDeleteRequest) (*BulkDeleteReceipt, error) {
	if len(req.CourseIDs) == 0 {
		return nil, apierr.NewValidation("course_ids", "This field is required.")
	}
	if req.Ban && req.Reason == "" {
		return nil, apierr.NewValidation("reason", "This field is required.")
	}
	if req.Ban && req.BanScope == models.ScopeOrganization {
		if err := requireGlobalStaff(actor); err != nil {
			return nil, err
		}
	}

	for _, courseID := range req.CourseIDs {
		if _, err := s.requireCoursePrivilege(ctx, actor, courseID); err != nil {
			return nil, err
		}
	}

	target, err := s.targetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if target.IsStaff {
		return nil, apierr.NewAuthorization("Staff users cannot be targeted for bulk deletion.")
	}

	var threadCount, commentCount int
	for _, courseID := range req.CourseIDs {
		stats, err := s.Forum.UserCourseStats(ctx, target.Username, courseID)
		if err != nil {
			s.Log.Warn("failed to count user content", zap.String("course_id", courseID), zap.Error(err))
			continue
		}
		threadCount += stats.Threads
		commentCount += stats.Comments + stats.Replies
	}

	job, err := s.Jobs.Enqueue(ctx, jobs.DeletionJob{
		TaskID:          uuid.NewString(),
		TargetUserID:    target.ID,
		TargetUsername:  target.Username,
		CourseIDs:       req.CourseIDs,
		BanUser:         req.Ban,
		BanScope:        req.BanScope,
		Reason:          req.Reason,
		ModeratorUserID: actor.ID,
	})
	if err != nil {
		return nil, err
	}

	return &BulkDeleteReceipt{
		TaskID:       job.TaskID,
		ThreadCount:  threadCount,
		CommentCount: commentCount,
	}, nil
}

// BannedUser is one row of the course ban listing.
type BannedUser struct {
	Username     string  `json:"username"`
	BanID        string  `json:"ban_id"`
	Scope        string  `json:"scope"`
	Reason       string  `json:"reason"`
	BannedAt     string  `json:"banned_at"`
	BannedBy     string  `json:"banned_by"`
	ThreadCount  int     `json:"thread_count"`
	CommentCount int     `json:"comment_count"`
	OrgKey       *string `json:"org_key,omitempty"`
}

// ListBannedForCourse returns users whose effective ban covers the
// course, with their forum activity counts. scope filters to one scope
// when non-empty.
func (s *Service) ListBannedForCourse(ctx context.Context, actor *models.User, courseID, scope string) ([]BannedUser, error) {
	if _, err := s.requireCoursePrivilege(ctx, actor, courseID); err != nil {
		return nil, err
	}
	key, err := models.ParseCourseKey(courseID)
	if err != nil {
		return nil, apierr.NewValidation("course_id", "Not a valid course id.")
	}

	if scope != "" && scope != models.ScopeCourse && scope != models.ScopeOrganization {
		return nil, apierr.NewValidation("scope", `Must be "course" or "organization".`)
	}

	list, err := s.Bans.ListForCourse(ctx, key, scope)
	if err != nil {
		return nil, err
	}

	out := make([]BannedUser, 0, len(list))
	for _, ban := range list {
		row := BannedUser{
			BanID:    ban.ID.Hex(),
			Scope:    ban.Scope,
			Reason:   ban.Reason,
			BannedAt: ban.BannedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if ban.Scope == models.ScopeOrganization {
			org := ban.OrgKey
			row.OrgKey = &org
		}

		target, err := s.Users.GetByID(ctx, ban.UserID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			continue
		}
		row.Username = target.Username

		if moderator, err := s.Users.GetByID(ctx, ban.BannedBy); err == nil && moderator != nil {
			row.BannedBy = moderator.Username
		}

		stats, err := s.Forum.UserCourseStats(ctx, target.Username, courseID)
		if err != nil {
			s.Log.Warn("failed to load user stats", zap.String("username", target.Username), zap.Error(err))
		} else {
			row.ThreadCount = stats.Threads
			row.CommentCount = stats.Comments + stats.Replies
		}

		out = append(out, row)
	}
	return out, nil
}

// AuditQuery selects moderation history rows.
type AuditQuery struct {
	CourseID string
	Username string // target user
	Action   string
	Source   string
	Limit    int64
	Offset   int64
}

// AuditEntry is one row of the moderation history listing.
type AuditEntry struct {
	Action    string            `json:"action"`
	Source    string            `json:"source"`
	Target    string            `json:"target_username,omitempty"`
	Moderator string            `json:"moderator_username,omitempty"`
	CourseID  string            `json:"course_id,omitempty"`
	Scope     string            `json:"scope,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at"`
}

func validAuditAction(action string) bool {
	switch action {
	case audit.ActionBan, audit.ActionUnban, audit.ActionBanReactivate,
		audit.ActionBanException, audit.ActionEdit, audit.ActionClose,
		audit.ActionDeleteThread, audit.ActionDeleteComment:
		return true
	}
	return false
}

// AuditHistory returns recorded moderation events, most recent first.
// Scoping to a course requires moderation privilege there; a query with
// no course is global and requires staff.
func (s *Service) AuditHistory(ctx context.Context, actor *models.User, q AuditQuery) ([]AuditEntry, int64, error) {
	if q.CourseID != "" {
		if _, err := s.requireCoursePrivilege(ctx, actor, q.CourseID); err != nil {
			return nil, 0, err
		}
	} else if !actor.IsStaff {
		return nil, 0, apierr.NewAuthorization("Only staff may query the audit log across courses.")
	}

	filter := audit.QueryFilter{
		CourseID: q.CourseID,
		Source:   q.Source,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.Action != "" {
		if !validAuditAction(q.Action) {
			return nil, 0, apierr.NewValidation("action", `"`+q.Action+`" is not a valid choice.`)
		}
		filter.ActionType = q.Action
	}
	if q.Username != "" {
		target, err := s.Users.GetByUsername(ctx, q.Username)
		if err != nil {
			return nil, 0, err
		}
		if target == nil {
			return nil, 0, apierr.NewNotFound("User not found.")
		}
		filter.TargetUserID = &target.ID
	}

	events, total, err := s.Audit.History(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	// Usernames are resolved per row; the listing is small and the
	// lookups hit the _id index.
	names := make(map[primitive.ObjectID]string)
	resolve := func(id primitive.ObjectID) string {
		if name, ok := names[id]; ok {
			return name
		}
		name := ""
		if u, err := s.Users.GetByID(ctx, id); err == nil && u != nil {
			name = u.Username
		}
		names[id] = name
		return name
	}

	out := make([]AuditEntry, 0, len(events))
	for _, ev := range events {
		out = append(out, AuditEntry{
			Action:    ev.ActionType,
			Source:    ev.Source,
			Target:    resolve(ev.TargetUserID),
			Moderator: resolve(ev.ModeratorUserID),
			CourseID:  ev.CourseID,
			Scope:     ev.Scope,
			Reason:    ev.Reason,
			Metadata:  ev.Metadata,
			CreatedAt: ev.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out, total, nil
}
