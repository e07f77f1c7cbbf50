// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratasite/internal/app/system/aiwriter"
	"github.com/dalemusser/stratasite/internal/app/system/apistats"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/cache"
	"github.com/dalemusser/stratasite/internal/app/system/mailer"
	"github.com/dalemusser/stratasite/internal/app/system/pexels"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// This struct is created in ConnectDB and passed to subsequent lifecycle
// hooks: EnsureSchema, Startup, BuildHandler, and Shutdown. Optional
// backends are nil when not configured.
//
// The Shutdown hook is responsible for closing these connections gracefully
// when the application terminates.
type DBDeps struct {
	// MongoDB client and database
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when redis_url is blank.
	Redis *redis.Client

	// Cache holds public API payloads; Counter backs per-IP rate limits.
	// Both fall back to in-memory implementations without Redis, and
	// sweepers then holds their expiry sweeps for the task runner.
	Cache    *cache.Content
	Counter  security.Counter
	sweepers []sweeper

	// FileStorage for media uploads and the site logo
	FileStorage storage.Store

	// Mailer for contact notifications and account emails
	Mailer *mailer.Mailer

	// Audit writes audit events; it is also the Monitor's durable sink.
	Audit *auditlog.Logger

	// Monitor keeps recent security events in memory.
	Monitor *security.Monitor

	// Writer is disabled (not nil) when no GenAI key is configured.
	Writer *aiwriter.Writer

	// Pexels is disabled (not nil) when no API key is configured.
	Pexels *pexels.Client

	// APIStats counts export API requests per hour.
	APIStats *apistats.Recorder
}
