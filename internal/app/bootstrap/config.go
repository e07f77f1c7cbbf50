package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const EnvVarPrefix = "STRATASITE"

// appConfigKeys are the app's own settings. Each is also available as
// STRATASITE_<NAME> and --<name>.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratasite", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Redis and response cache
	{Name: "redis_url", Default: "", Desc: "Redis URL (e.g., redis://localhost:6379/0); blank uses in-memory cache and counters"},
	{Name: "cache_ttl", Default: "5m", Desc: "Lifetime of cached public API payloads"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratasite-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	// Login rate limiting
	{Name: "rate_limit_enabled", Default: true, Desc: "Enable rate limiting for login attempts"},
	{Name: "rate_limit_login_attempts", Default: 5, Desc: "Max failed login attempts before lockout"},
	{Name: "rate_limit_login_window", Default: "15m", Desc: "Time window for counting failed attempts"},
	{Name: "rate_limit_login_lockout", Default: "15m", Desc: "Lockout duration after exceeding limit"},

	// Public API rate limiting
	{Name: "api_rate_limit", Default: 120, Desc: "Requests per IP per window on /api (0 disables)"},
	{Name: "api_rate_window", Default: "1m", Desc: "Window for api_rate_limit"},
	{Name: "contact_rate_limit", Default: 10, Desc: "Contact form posts per IP per window (0 disables)"},
	{Name: "contact_rate_window", Default: "10m", Desc: "Window for contact_rate_limit"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},
	{Name: "public_cors_origins", Default: "", Desc: "Comma-separated origins allowed on the public API (blank allows any)"},
	{Name: "export_api_key", Default: "", Desc: "Bearer key for the export API (leave empty to disable it)"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},

	// S3/CloudFront configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "uploads/", Desc: "S3 key prefix"},
	{Name: "storage_cf_url", Default: "", Desc: "CloudFront distribution URL"},
	{Name: "storage_cf_keypair_id", Default: "", Desc: "CloudFront key pair ID"},
	{Name: "storage_cf_key_path", Default: "", Desc: "Path to CloudFront private key file"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host (blank disables email)"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@example.com", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Strata Site", Desc: "From display name"},
	{Name: "contact_recipient", Default: "", Desc: "Fallback recipient for contact form notifications"},

	{Name: "base_url", Default: "http://localhost:8080", Desc: "Public base URL for OAuth redirects and email links"},
	{Name: "site_name", Default: "Strata Site", Desc: "Site name used in account emails"},

	// AI drafting and stock photos
	{Name: "genai_api_key", Default: "", Desc: "Google GenAI API key (blank disables AI drafting)"},
	{Name: "genai_model", Default: "gemini-2.5-flash", Desc: "GenAI model used for drafts and alt text"},
	{Name: "pexels_api_key", Default: "", Desc: "Pexels API key (blank disables stock photo search)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_security", Default: "all", Desc: "Security event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_retention", Default: "0", Desc: "Delete audit entries older than this (e.g., 2160h); 0 keeps all"},

	// Security monitor
	{Name: "security_event_buffer", Default: 1000, Desc: "Number of security events kept in memory"},
	{Name: "security_event_max_age", Default: "168h", Desc: "Security events older than this are pruned"},

	// Time budgets
	{Name: "ping_timeout", Default: "5s", Desc: "Timeout for health and Redis pings"},
	{Name: "db_timeout", Default: "5s", Desc: "Timeout for request-path database lookups"},
	{Name: "outbound_timeout", Default: "15s", Desc: "Timeout for Google and Pexels API calls"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Admin seeding configuration
	{Name: "seed_admin_email", Default: "", Desc: "Email of admin user to create on startup"},
	{Name: "seed_admin_name", Default: "Admin", Desc: "Name of admin user to create on startup"},
	{Name: "seed_admin_password", Default: "", Desc: "Temporary password for the seeded admin (blank: Google sign-in)"},
}

// LoadConfig reads waffle's core settings and appConfigKeys. Values come
// from flags, STRATASITE_* environment variables, config files and the
// defaults above, in that order of precedence.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		RedisURL: appValues.String("redis_url"),
		CacheTTL: appValues.Duration("cache_ttl", 5*time.Minute),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),

		// Rate limiting
		RateLimitEnabled:       appValues.Bool("rate_limit_enabled"),
		RateLimitLoginAttempts: appValues.Int("rate_limit_login_attempts"),
		RateLimitLoginWindow:   appValues.Duration("rate_limit_login_window", 15*time.Minute),
		RateLimitLoginLockout:  appValues.Duration("rate_limit_login_lockout", 15*time.Minute),
		APIRateLimit:           int64(appValues.Int("api_rate_limit")),
		APIRateWindow:          appValues.Duration("api_rate_window", time.Minute),
		ContactRateLimit:       int64(appValues.Int("contact_rate_limit")),
		ContactRateWindow:      appValues.Duration("contact_rate_window", 10*time.Minute),

		CSRFKey:           appValues.String("csrf_key"),
		PublicCORSOrigins: splitList(appValues.String("public_cors_origins")),
		ExportAPIKey:      appValues.String("export_api_key"),

		// File storage
		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3/CloudFront
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageCFURL:       appValues.String("storage_cf_url"),
		StorageCFKeyPairID: appValues.String("storage_cf_keypair_id"),
		StorageCFKeyPath:   appValues.String("storage_cf_key_path"),

		// Email/SMTP
		MailSMTPHost:     appValues.String("mail_smtp_host"),
		MailSMTPPort:     appValues.Int("mail_smtp_port"),
		MailSMTPUser:     appValues.String("mail_smtp_user"),
		MailSMTPPass:     appValues.String("mail_smtp_pass"),
		MailFrom:         appValues.String("mail_from"),
		MailFromName:     appValues.String("mail_from_name"),
		ContactRecipient: appValues.String("contact_recipient"),

		BaseURL:  strings.TrimRight(appValues.String("base_url"), "/"),
		SiteName: appValues.String("site_name"),

		GenAIAPIKey:  appValues.String("genai_api_key"),
		GenAIModel:   appValues.String("genai_model"),
		PexelsAPIKey: appValues.String("pexels_api_key"),

		// Audit logging
		AuditLogAuth:     appValues.String("audit_log_auth"),
		AuditLogAdmin:    appValues.String("audit_log_admin"),
		AuditLogSecurity: appValues.String("audit_log_security"),
		AuditRetention:   appValues.Duration("audit_retention", 0),

		SecurityEventBuffer: appValues.Int("security_event_buffer"),
		SecurityEventMaxAge: appValues.Duration("security_event_max_age", 7*24*time.Hour),

		PingTimeout:     appValues.Duration("ping_timeout", 5*time.Second),
		DBTimeout:       appValues.Duration("db_timeout", 5*time.Second),
		OutboundTimeout: appValues.Duration("outbound_timeout", 15*time.Second),

		// Google OAuth
		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		// Admin seeding
		SeedAdminEmail:    appValues.String("seed_admin_email"),
		SeedAdminName:     appValues.String("seed_admin_name"),
		SeedAdminPassword: appValues.String("seed_admin_password"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configs the app cannot run with. Every problem
// is reported, not just the first.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var problems []error
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		fail("mongo_uri: %w", err)
	}

	switch appCfg.StorageType {
	case "", "local":
	case "s3":
		if appCfg.StorageS3Bucket == "" {
			fail("storage_s3_bucket is required when storage_type is s3")
		}
	default:
		fail("storage_type: unknown value %q (want local or s3)", appCfg.StorageType)
	}

	routes := []struct{ key, value string }{
		{"audit_log_auth", appCfg.AuditLogAuth},
		{"audit_log_admin", appCfg.AuditLogAdmin},
		{"audit_log_security", appCfg.AuditLogSecurity},
	}
	for _, r := range routes {
		if !auditlog.ValidRoute(r.value) {
			fail("%s: unknown value %q (want all, db, log or off)", r.key, r.value)
		}
	}

	if appCfg.SecurityEventBuffer <= 0 {
		fail("security_event_buffer must be positive, got %d", appCfg.SecurityEventBuffer)
	}
	if appCfg.CacheTTL <= 0 {
		fail("cache_ttl must be positive, got %s", appCfg.CacheTTL)
	}

	if coreCfg.Env == "prod" {
		for _, k := range []struct{ key, value string }{
			{"session_key", appCfg.SessionKey},
			{"csrf_key", appCfg.CSRFKey},
		} {
			if strings.HasPrefix(k.value, "dev-only") {
				fail("%s must be set in production", k.key)
			}
		}
	}

	err := errors.Join(problems...)
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
	}
	return err
}

// splitList parses a comma-separated config value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
