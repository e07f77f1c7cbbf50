// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like ports, TLS,
// logging level, CORS for the admin origin and request body limits.
// Everything specific to the site and its admin lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Redis backs the response cache and API rate counters. Blank uses
	// in-process fallbacks, which is fine for a single instance.
	RedisURL string
	CacheTTL time.Duration // Lifetime of cached public JSON payloads (default: 5m)

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: stratasite-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 24h)

	// Login rate limiting configuration
	RateLimitEnabled       bool          // Enable rate limiting for login attempts (default: true)
	RateLimitLoginAttempts int           // Max failed login attempts before lockout (default: 5)
	RateLimitLoginWindow   time.Duration // Time window for counting failed attempts (default: 15m)
	RateLimitLoginLockout  time.Duration // Lockout duration after exceeding limit (default: 15m)

	// Per-IP request limits for the public API
	APIRateLimit      int64         // Requests per window on /api/* (0 disables)
	APIRateWindow     time.Duration // Window for APIRateLimit (default: 1m)
	ContactRateLimit  int64         // Contact form posts per window (0 disables)
	ContactRateWindow time.Duration // Window for ContactRateLimit (default: 10m)

	// CSRF protection configuration
	CSRFKey string // Secret key for CSRF token signing (32 bytes, must be strong in production)

	// CORS origins allowed to call the public read API. Empty allows any.
	PublicCORSOrigins []string

	// ExportAPIKey enables GET /api/export/* for Bearer token holders.
	// Leave empty to disable the export API.
	ExportAPIKey string

	// File storage configuration
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/files")

	// S3/CloudFront configuration (only used if StorageType is "s3")
	StorageS3Region    string // AWS region
	StorageS3Bucket    string // S3 bucket name
	StorageS3Prefix    string // Key prefix (e.g., "uploads/")
	StorageCFURL       string // CloudFront distribution URL
	StorageCFKeyPairID string // CloudFront key pair ID
	StorageCFKeyPath   string // Path to CloudFront private key file

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address (e.g., noreply@example.com)
	MailFromName string // From display name

	// ContactRecipient receives contact form notifications when the site
	// settings carry no contact email.
	ContactRecipient string

	// Public base URL of the site, used for OAuth redirects and email links.
	BaseURL  string // e.g., "https://example.com" or "http://localhost:8080"
	SiteName string // Name used in account emails

	// AI drafting (Google GenAI). A blank key disables /admin/api/ai.
	GenAIAPIKey string
	GenAIModel  string

	// Stock photo search. A blank key disables /admin/api/stock.
	PexelsAPIKey string

	// Audit logging configuration
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	AuditLogAuth     string        // Authentication events (login, logout, password)
	AuditLogAdmin    string        // Admin actions (users, content, settings, theme, media)
	AuditLogSecurity string        // Security monitor events
	AuditRetention   time.Duration // Audit entries older than this are deleted (0 keeps all)

	// Security monitor
	SecurityEventBuffer int           // In-memory event ring size (default: 1000)
	SecurityEventMaxAge time.Duration // Events older than this are pruned (default: 168h)

	// Time budgets; zero keeps the package defaults
	PingTimeout     time.Duration // Health and Redis pings (default: 5s)
	DBTimeout       time.Duration // Request-path lookups such as the session user (default: 5s)
	OutboundTimeout time.Duration // Google and Pexels HTTP calls (default: 15s)

	// Google OAuth configuration
	GoogleClientID     string // Google OAuth2 client ID
	GoogleClientSecret string // Google OAuth2 client secret

	// Admin seeding configuration
	SeedAdminEmail    string // Email of the admin user to create on startup (if set)
	SeedAdminName     string // Name of the admin user to create on startup
	SeedAdminPassword string // Temporary password; blank means Google sign-in only
}

// LoginURL is where account emails send people to sign in.
func (c AppConfig) LoginURL() string {
	return c.BaseURL + "/admin/login"
}

// AdminURL is the base of admin links in notification emails.
func (c AppConfig) AdminURL() string {
	return c.BaseURL + "/admin"
}
