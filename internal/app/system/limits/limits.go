// internal/app/system/limits/limits.go
package limits

// Request body size limits for the JSON API.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBodySize caps thread and comment create/update bodies.
	// Markdown bodies are large but bounded well below this.
	MaxJSONBodySize = 1 << 20 // 1 MB

	// MaxModerationBodySize caps moderation requests, which carry only
	// identifiers, scopes, and short reasons.
	MaxModerationBodySize = 64 << 10 // 64 KB
)
