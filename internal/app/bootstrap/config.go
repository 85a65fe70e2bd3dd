// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/system/ratelimit"
)

// appConfigKeys defines the configuration keys for DiscussHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, forum_base_url, etc.
//   - Environment variables: DISCUSSHUB_MONGO_URI, DISCUSSHUB_FORUM_BASE_URL, etc.
//   - Command-line flags: --mongo_uri, --forum_base_url, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "discuss_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "discusshub-session", Desc: "Session cookie name"},

	// Forum backend
	{Name: "forum_base_url", Default: "http://localhost:4567/api/v1", Desc: "Base URL of the comments service"},
	{Name: "forum_timeout", Default: "10s", Desc: "Per-request timeout for comments service calls"},

	// Redis (optional; enables the distributed rate limiter)
	{Name: "redis_addr", Default: "", Desc: "Redis address for the posting rate limiter (blank: in-process limiter)"},

	// Posting gates
	{Name: "rate_limit_count", Default: 30, Desc: "Posts allowed per window for new accounts"},
	{Name: "rate_limit_window", Default: "1h", Desc: "Rate limit window length"},
	{Name: "rate_limit_scope", Default: "user", Desc: "Rate limit key scope: 'user' or 'user_course'"},
	{Name: "new_account_threshold_days", Default: 14, Desc: "Accounts younger than this many days are rate limited"},
	{Name: "captcha_secret", Default: "", Desc: "Shared secret for captcha token verification (blank disables verification)"},

	// Audit logging settings
	{Name: "audit_log_moderation", Default: "all", Desc: "Ban/unban event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_content", Default: "all", Desc: "Edit/close/delete event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Bulk deleter
	{Name: "deleter_poll_interval", Default: "15s", Desc: "How often idle deleter workers poll the job queue"},
	{Name: "deleter_workers", Default: 2, Desc: "Concurrent bulk-deletion job processors"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific
// to this app and can be extended as the app grows.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, DISCUSSHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "DISCUSSHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),

		ForumBaseURL: appValues.String("forum_base_url"),
		ForumTimeout: appValues.Duration("forum_timeout", 10*time.Second),

		RedisAddr: appValues.String("redis_addr"),

		RateLimitCount:          appValues.Int("rate_limit_count"),
		RateLimitWindow:         appValues.Duration("rate_limit_window", time.Hour),
		RateLimitScope:          appValues.String("rate_limit_scope"),
		NewAccountThresholdDays: appValues.Int("new_account_threshold_days"),
		CaptchaSecret:           appValues.String("captcha_secret"),

		AuditLogModeration: appValues.String("audit_log_moderation"),
		AuditLogContent:    appValues.String("audit_log_content"),

		DeleterPollInterval: appValues.Duration("deleter_poll_interval", 15*time.Second),
		DeleterWorkers:      appValues.Int("deleter_workers"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// This is the right place to enforce required fields or invariants that
// involve both the core and app configs.
//
// DiscussHub validates the MongoDB URI format to catch configuration
// errors early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.ForumBaseURL == "" {
		return fmt.Errorf("forum_base_url must be set")
	}

	switch appCfg.RateLimitScope {
	case ratelimit.ScopeUser, ratelimit.ScopeUserCourse:
	default:
		return fmt.Errorf("rate_limit_scope must be %q or %q, got %q",
			ratelimit.ScopeUser, ratelimit.ScopeUserCourse, appCfg.RateLimitScope)
	}

	if appCfg.DeleterWorkers < 1 {
		return fmt.Errorf("deleter_workers must be at least 1")
	}

	return nil
}
