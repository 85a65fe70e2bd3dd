// internal/app/features/threads/handler.go
package threads

import (
	"context"

	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/features/shared"
	"github.com/opencampus/discusshub/internal/app/forum"
	"github.com/opencampus/discusshub/internal/app/system/auditlog"
	"github.com/opencampus/discusshub/internal/app/system/gates"
	"github.com/opencampus/discusshub/internal/domain/models"
)

// Handler is the feature-level entry point for threads.
type Handler struct {
	Log        *zap.Logger
	Resolver   *shared.ContextResolver
	Forum      forum.Client
	Serializer *shared.Serializer
	Gate       *gates.WriteGate
	Audit      *auditlog.Logger
}

// NewHandler constructs a threads handler.
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

// fetchThread loads a thread by id alone; the caller resolves course
// access from the returned course id.
func (h *Handler) fetchThread(ctx context.Context, id string) (*models.Thread, error) {
	t, err := h.Forum.GetThread(ctx, id, "", "", false)
	if err != nil {
		return nil, shared.MapForumError(err, "Thread not found.")
	}
	return t, nil
}
