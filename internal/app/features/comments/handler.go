// internal/app/features/comments/handler.go
package comments

import (
	"context"

	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/features/shared"
	"github.com/opencampus/discusshub/internal/app/forum"
	"github.com/opencampus/discusshub/internal/app/system/auditlog"
	"github.com/opencampus/discusshub/internal/app/system/gates"
	"github.com/opencampus/discusshub/internal/domain/models"
)

// Handler is the feature-level entry point for comments.
type Handler struct {
	Log        *zap.Logger
	Resolver   *shared.ContextResolver
	Forum      forum.Client
	Serializer *shared.Serializer
	Gate       *gates.WriteGate
	Audit      *auditlog.Logger
}

// NewHandler constructs a comments handler.
func NewHandler(log *zap.Logger, resolver *shared.ContextResolver, client forum.Client, serializer *shared.Serializer, gate *gates.WriteGate, audit *auditlog.Logger) *Handler {
	return &Handler{
		Log:        log,
		Resolver:   resolver,
		Forum:      client,
		Serializer: serializer,
		Gate:       gate,
		Audit:      audit,
	}
}

// fetchComment loads a comment by id alone, plus its containing thread.
func (h *Handler) fetchComment(ctx context.Context, id string) (*models.Comment, *models.Thread, error) {
	cm, err := h.Forum.GetComment(ctx, id, "")
	if err != nil {
		return nil, nil, shared.MapForumError(err, "Comment not found.")
	}
	thread, err := h.Forum.GetThread(ctx, cm.ThreadID, cm.CourseID, "", false)
	if err != nil {
		return nil, nil, shared.MapForumError(err, "Thread not found.")
	}
	return cm, thread, nil
}
