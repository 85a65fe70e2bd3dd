// internal/app/system/auditlog/logger.go

// Package auditlog is the facade every moderation mutation calls. It
// writes the append-only audit store and mirrors events to structured
// logs. Mutations must go through this facade rather than logging ad
// hoc, so no state transition can skip its audit row.
package auditlog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/store/audit"
)

// Config controls where moderation events are recorded.
type Config struct {
	// Moderation covers ban/unban/exception events.
	// Values: "all" (store + zap), "db" (store only), "log" (zap only), "off".
	Moderation string
	// Content covers edit/close/delete events.
	Content string
}

// Logger records audit events to the store and to zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates an audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func isModerationAction(actionType string) bool {
	switch actionType {
	case audit.ActionBan, audit.ActionUnban, audit.ActionBanReactivate, audit.ActionBanException:
		return true
	}
	return false
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("action_type", event.ActionType),
		zap.String("source", event.Source),
		zap.String("target_user_id", event.TargetUserID.Hex()),
		zap.String("moderator_user_id", event.ModeratorUserID.Hex()),
	}
	if event.CourseID != "" {
		fields = append(fields, zap.String("course_id", event.CourseID))
	}
	if event.Scope != "" {
		fields = append(fields, zap.String("scope", event.Scope))
	}
	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}
	for k, v := range event.Metadata {
		fields = append(fields, zap.String("meta_"+k, v))
	}
	l.zapLog.Info("audit event", fields...)
}

// Append records an audit event according to configuration. The store
// write happens in the caller's context, so callers running inside a
// transaction get the audit row committed with the state change.
// Returns the store error so transactional callers can abort.
func (l *Logger) Append(ctx context.Context, event audit.Event) error {
	if l == nil {
		return nil
	}

	setting := l.config.Content
	if isModerationAction(event.ActionType) {
		setting = l.config.Moderation
	}
	if setting == "off" {
		return nil
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Append(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("action_type", event.ActionType))
			return err
		}
	}
	return nil
}

// History retrieves recorded events matching the filter, most recent
// first, along with the total match count for pagination.
func (l *Logger) History(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, int64, error) {
	events, err := l.store.Query(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := l.store.CountByFilter(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// Ban records a ban or reactivation.
func (l *Logger) Ban(ctx context.Context, target, moderator primitive.ObjectID, courseID, scope, reason, source string, reactivated bool) error {
	actionType := audit.ActionBan
	if reactivated {
		actionType = audit.ActionBanReactivate
	}
	return l.Append(ctx, audit.Event{
		ActionType:      actionType,
		Source:          source,
		TargetUserID:    target,
		ModeratorUserID: moderator,
		CourseID:        courseID,
		Scope:           scope,
		Reason:          reason,
	})
}

// Unban records a ban deactivation.
func (l *Logger) Unban(ctx context.Context, target, moderator primitive.ObjectID, courseID, scope, reason, source string) error {
	return l.Append(ctx, audit.Event{
		ActionType:      audit.ActionUnban,
		Source:          source,
		TargetUserID:    target,
		ModeratorUserID: moderator,
		CourseID:        courseID,
		Scope:           scope,
		Reason:          reason,
	})
}

// BanException records a per-course override of an org ban.
func (l *Logger) BanException(ctx context.Context, target, moderator primitive.ObjectID, courseID, reason string, banID primitive.ObjectID) error {
	return l.Append(ctx, audit.Event{
		ActionType:      audit.ActionBanException,
		Source:          audit.SourceHuman,
		TargetUserID:    target,
		ModeratorUserID: moderator,
		CourseID:        courseID,
		Scope:           "organization",
		Reason:          reason,
		Metadata:        map[string]string{"ban_id": banID.Hex()},
	})
}

// ContentEdit records a moderator or author edit of a thread or comment.
func (l *Logger) ContentEdit(ctx context.Context, target, moderator primitive.ObjectID, courseID, contentID, reasonCode string) error {
	return l.Append(ctx, audit.Event{
		ActionType:      audit.ActionEdit,
		Source:          audit.SourceHuman,
		TargetUserID:    target,
		ModeratorUserID: moderator,
		CourseID:        courseID,
		Reason:          reasonCode,
		Metadata:        map[string]string{"content_id": contentID},
	})
}

// ThreadClose records a thread close or reopen.
func (l *Logger) ThreadClose(ctx context.Context, target, moderator primitive.ObjectID, courseID, threadID, reasonCode string, closed bool) error {
	state := "closed"
	if !closed {
		state = "reopened"
	}
	return l.Append(ctx, audit.Event{
		ActionType:      audit.ActionClose,
		Source:          audit.SourceHuman,
		TargetUserID:    target,
		ModeratorUserID: moderator,
		CourseID:        courseID,
		Reason:          reasonCode,
		Metadata:        map[string]string{"thread_id": threadID, "state": state},
	})
}

// ContentDelete records one thread or comment deletion.
func (l *Logger) ContentDelete(ctx context.Context, target, moderator primitive.ObjectID, courseID, contentID, source string, isThread bool) error {
	actionType := audit.ActionDeleteComment
	if isThread {
		actionType = audit.ActionDeleteThread
	}
	return l.Append(ctx, audit.Event{
		ActionType:      actionType,
		Source:          source,
		TargetUserID:    target,
		ModeratorUserID: moderator,
		CourseID:        courseID,
		Metadata:        map[string]string{"content_id": contentID},
	})
}
