// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	commentsfeature "github.com/opencampus/discusshub/internal/app/features/comments"
	coursemetafeature "github.com/opencampus/discusshub/internal/app/features/coursemeta"
	healthfeature "github.com/opencampus/discusshub/internal/app/features/health"
	moderationfeature "github.com/opencampus/discusshub/internal/app/features/moderation"
	"github.com/opencampus/discusshub/internal/app/features/shared"
	threadsfeature "github.com/opencampus/discusshub/internal/app/features/threads"
	"github.com/opencampus/discusshub/internal/app/forum"
	auditstore "github.com/opencampus/discusshub/internal/app/store/audit"
	banstore "github.com/opencampus/discusshub/internal/app/store/bans"
	coursestore "github.com/opencampus/discusshub/internal/app/store/courses"
	jobstore "github.com/opencampus/discusshub/internal/app/store/jobs"
	rolestore "github.com/opencampus/discusshub/internal/app/store/roles"
	userstore "github.com/opencampus/discusshub/internal/app/store/users"
	"github.com/opencampus/discusshub/internal/app/system/auditlog"
	"github.com/opencampus/discusshub/internal/app/system/auth"
	"github.com/opencampus/discusshub/internal/app/system/captcha"
	"github.com/opencampus/discusshub/internal/app/system/gates"
	"github.com/opencampus/discusshub/internal/app/system/ratelimit"
	"github.com/opencampus/discusshub/internal/app/system/render"
	"github.com/opencampus/discusshub/internal/app/system/roles"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// DiscussHub applies session middleware, installs the per-request role
// cache, and mounts the discussion API under /api/discussion/v1:
// threads, comments, moderation, course metadata, and health.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionName, secure, logger); err != nil {
		logger.Error("session store init failed", zap.Error(err))
		return nil, err
	}

	users := userstore.New(deps.MongoDatabase)
	courses := coursestore.New(deps.MongoDatabase)
	bans := banstore.New(deps.MongoDatabase)
	jobs := jobstore.New(deps.MongoDatabase)
	roleResolver := roles.NewResolver(rolestore.New(deps.MongoDatabase))

	client := forumClient
	if client == nil {
		// Startup is skipped in some test harnesses; build the client here.
		client = forum.NewHTTP(appCfg.ForumBaseURL, appCfg.ForumTimeout, logger)
	}

	auditLog := auditlog.New(auditstore.New(deps.MongoDatabase), logger, auditlog.Config{
		Moderation: appCfg.AuditLogModeration,
		Content:    appCfg.AuditLogContent,
	})

	// Rate limiter: Redis when configured, in-process otherwise.
	var limiter ratelimit.Limiter
	if appCfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: appCfg.RedisAddr})
		limiter = ratelimit.NewRedis(rdb, appCfg.RateLimitCount, appCfg.RateLimitWindow)
		logger.Info("using redis rate limiter", zap.String("addr", appCfg.RedisAddr))
	} else {
		limiter = ratelimit.NewMemory(appCfg.RateLimitCount, appCfg.RateLimitWindow)
	}

	var verifier captcha.Verifier
	if appCfg.CaptchaSecret != "" {
		verifier = captcha.NewHMAC(appCfg.CaptchaSecret)
	}

	gate := &gates.WriteGate{
		Limiter:             limiter,
		LimiterScope:        appCfg.RateLimitScope,
		NewAccountThreshold: time.Duration(appCfg.NewAccountThresholdDays) * 24 * time.Hour,
		Captcha:             verifier,
		Bans:                bans,
	}

	serializer := &shared.Serializer{
		Renderer: render.Default(),
		Roles:    roleResolver,
		Users:    users,
		Bans:     bans,
	}
	resolver := &shared.ContextResolver{
		Log:     logger,
		Users:   users,
		Courses: courses,
		Roles:   roleResolver,
		Forum:   client,
	}

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(auth.LoadSessionUser)
	// Per-request role cache so repeated policy checks hit the role
	// tables once.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(roles.WithRequestCache(req.Context())))
		})
	})

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.ForumBaseURL, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api/discussion/v1", func(api chi.Router) {
		threadsHandler := threadsfeature.NewHandler(logger, resolver, client, serializer, gate, auditLog)
		api.Mount("/threads", threadsfeature.Routes(threadsHandler))

		commentsHandler := commentsfeature.NewHandler(logger, resolver, client, serializer, gate, auditLog)
		api.Mount("/comments", commentsfeature.Routes(commentsHandler))

		moderationService := &moderationfeature.Service{
			DB:      deps.MongoDatabase,
			Log:     logger,
			Users:   users,
			Courses: courses,
			Roles:   roleResolver,
			Bans:    bans,
			Jobs:    jobs,
			Forum:   client,
			Audit:   auditLog,
		}
		moderationHandler := moderationfeature.NewHandler(logger, moderationService)
		api.Mount("/moderation", moderationfeature.Routes(moderationHandler))

		coursemetaHandler := coursemetafeature.NewHandler(logger, resolver)
		api.Mount("/", coursemetafeature.Routes(coursemetaHandler))
	})

	return r, nil
}
