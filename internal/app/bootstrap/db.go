// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	apistatsstore "github.com/dalemusser/stratasite/internal/app/store/apistats"
	"github.com/dalemusser/stratasite/internal/app/store/audit"
	"github.com/dalemusser/stratasite/internal/app/system/aiwriter"
	"github.com/dalemusser/stratasite/internal/app/system/apistats"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/cache"
	"github.com/dalemusser/stratasite/internal/app/system/indexes"
	"github.com/dalemusser/stratasite/internal/app/system/mailer"
	"github.com/dalemusser/stratasite/internal/app/system/pexels"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/app/system/seeding"
	"github.com/dalemusser/stratasite/internal/app/system/timeouts"
	"github.com/dalemusser/stratasite/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// sweeper is an in-memory expiry sweep registered with the task runner.
type sweeper struct {
	name  string
	sweep func() int
}

// ConnectDB connects to MongoDB (required) and Redis (optional), then builds
// the backends that handlers share: file storage, mailer, response cache,
// rate counters, the security monitor, and the AI and stock photo clients.
//
// WAFFLE calls this after configuration is loaded but before EnsureSchema and
// Startup.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	timeouts.Configure(timeouts.Config{
		Ping:     appCfg.PingTimeout,
		DB:       appCfg.DBTimeout,
		Outbound: appCfg.OutboundTimeout,
	})

	// Configure MongoDB connection pool
	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, err
	}

	db := client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
	}

	if err := connectRedis(ctx, appCfg, &deps, logger); err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, err
	}

	store, err := newFileStorage(ctx, appCfg, logger)
	if err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, err
	}
	deps.FileStorage = store

	// Initialize email mailer
	deps.Mailer = mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
	logger.Info("initialized email mailer",
		zap.String("host", appCfg.MailSMTPHost),
		zap.Int("port", appCfg.MailSMTPPort),
		zap.Bool("enabled", deps.Mailer.Enabled()),
	)

	// Audit logger doubles as the security monitor's durable sink.
	deps.Audit = auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:     appCfg.AuditLogAuth,
		Admin:    appCfg.AuditLogAdmin,
		Security: appCfg.AuditLogSecurity,
	})
	deps.Monitor = security.NewMonitor(appCfg.SecurityEventBuffer, deps.Audit, logger)

	// AI drafting is optional; a failed client leaves it disabled.
	var gen aiwriter.Generator
	if appCfg.GenAIAPIKey != "" {
		g, err := aiwriter.NewGenAI(ctx, appCfg.GenAIAPIKey, appCfg.GenAIModel)
		if err != nil {
			logger.Warn("AI drafting disabled", zap.Error(err))
		} else {
			gen = g
			logger.Info("AI drafting enabled", zap.String("model", appCfg.GenAIModel))
		}
	}
	deps.Writer = aiwriter.New(gen, logger)

	deps.Pexels = pexels.New(appCfg.PexelsAPIKey)
	deps.APIStats = apistats.NewRecorder(apistatsstore.New(db), logger)

	return deps, nil
}

// connectRedis sets up the response cache and rate counters. Without a
// Redis URL both stay in process memory.
func connectRedis(ctx context.Context, appCfg AppConfig, deps *DBDeps, logger *zap.Logger) error {
	if appCfg.RedisURL == "" {
		mem := cache.NewMemory()
		counter := security.NewMemoryCounter()
		deps.Cache = cache.NewContent(mem, appCfg.CacheTTL, logger)
		deps.Counter = counter
		deps.sweepers = []sweeper{
			{name: "cache-sweep", sweep: mem.Sweep},
			{name: "rate-counter-sweep", sweep: counter.Sweep},
		}
		logger.Info("using in-memory cache and rate counters")
		return nil
	}

	opts, err := redis.ParseURL(appCfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid redis_url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	deps.Redis = rdb
	deps.Cache = cache.NewContent(cache.NewRedis(rdb, "stratasite:cache:"), appCfg.CacheTTL, logger)
	deps.Counter = security.NewRedisCounter(rdb, "stratasite:rl:")
	logger.Info("connected to Redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return nil
}

func newFileStorage(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (storage.Store, error) {
	switch appCfg.StorageType {
	case "s3":
		store, err := storage.NewS3(ctx, storage.S3Config{
			Region:                   appCfg.StorageS3Region,
			Bucket:                   appCfg.StorageS3Bucket,
			Prefix:                   appCfg.StorageS3Prefix,
			CloudFrontURL:            appCfg.StorageCFURL,
			CloudFrontKeyPairID:      appCfg.StorageCFKeyPairID,
			CloudFrontPrivateKeyPath: appCfg.StorageCFKeyPath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		logger.Info("initialized S3/CloudFront file storage",
			zap.String("bucket", appCfg.StorageS3Bucket),
			zap.String("prefix", appCfg.StorageS3Prefix),
		)
		return store, nil
	case "local", "":
		store, err := storage.NewLocal(storage.LocalConfig{
			BasePath: appCfg.StorageLocalPath,
			BaseURL:  appCfg.StorageLocalURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		logger.Info("initialized local file storage",
			zap.String("path", appCfg.StorageLocalPath),
			zap.String("url", appCfg.StorageLocalURL),
		)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", appCfg.StorageType)
	}
}

// EnsureSchema sets up indexes or schema as needed.
//
// This runs after ConnectDB succeeds but before Startup and before the HTTP
// handler is built.
//
// The context has a timeout based on coreCfg.IndexBootTimeout, so long-running
// migrations should respect context cancellation.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	// Ensure collections exist and attach JSON-Schema validators.
	// This runs first so indexes can be created on existing collections.
	logger.Info("ensuring collections and validators")
	if err := validators.EnsureAll(ctx, db); err != nil {
		logger.Error("failed to ensure validators", zap.Error(err))
		return err
	}

	// Ensure database indexes for query performance.
	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, db); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}

	// Seed default data (theme, site settings, About)
	logger.Info("seeding default data")
	if err := seeding.SeedAll(ctx, db, logger); err != nil {
		logger.Error("failed to seed default data", zap.Error(err))
		return err
	}

	logger.Info("database schema ensured successfully")
	return nil
}
