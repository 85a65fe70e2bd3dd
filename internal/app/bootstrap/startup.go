// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/forum"
	"github.com/opencampus/discusshub/internal/app/store/audit"
	"github.com/opencampus/discusshub/internal/app/store/bans"
	"github.com/opencampus/discusshub/internal/app/store/jobs"
	"github.com/opencampus/discusshub/internal/app/system/auditlog"
	"github.com/opencampus/discusshub/internal/app/system/timeouts"
	"github.com/opencampus/discusshub/internal/app/system/workers"
)

// Long-lived collaborators created during Startup and reused by
// BuildHandler and Shutdown.
var (
	forumClient forum.Client
	deleter     *workers.Deleter
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
// It configures operation timeouts, creates the shared forum client,
// and launches the bulk-deletion worker pool.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.ConfigureFromEnv()

	forumClient = forum.NewHTTP(appCfg.ForumBaseURL, appCfg.ForumTimeout, logger)

	auditLog := auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Moderation: appCfg.AuditLogModeration,
		Content:    appCfg.AuditLogContent,
	})

	deleter = workers.NewDeleter(
		jobs.New(deps.MongoDatabase),
		forumClient,
		bans.New(deps.MongoDatabase),
		auditLog,
		logger,
		appCfg.DeleterPollInterval,
		appCfg.DeleterWorkers,
	)
	deleter.Start()

	return nil
}
