// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//   - Database connection timeouts
//
// AppConfig is where everything specific to the discussion service
// lives: the forum backend location, posting-gate tuning, audit-log
// routing, and the bulk-deleter worker pool.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey  string // Secret key for signing session cookies (must be strong in production)
	SessionName string // Cookie name for sessions (default: discusshub-session)

	// Forum backend (the comments service holding thread/comment documents)
	ForumBaseURL string        // e.g., "http://localhost:4567/api/v1"
	ForumTimeout time.Duration // per-request timeout for forum calls

	// Redis, used for the posting rate limiter when running more than
	// one API instance. Blank means the in-process limiter.
	RedisAddr string

	// Posting gates
	RateLimitCount          int           // posts allowed per window for new accounts
	RateLimitWindow         time.Duration // window length
	RateLimitScope          string        // "user" or "user_course"
	NewAccountThresholdDays int           // accounts younger than this are rate limited
	CaptchaSecret           string        // shared secret for captcha token verification

	// Audit logging routing: "all" (db+log), "db", "log", or "off"
	AuditLogModeration string // ban / unban / exception events
	AuditLogContent    string // edit / close / delete events

	// Bulk deleter worker pool
	DeleterPollInterval time.Duration // how often idle workers poll the job queue
	DeleterWorkers      int           // concurrent job processors
}
