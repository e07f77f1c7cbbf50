// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	apistatsstore "github.com/dalemusser/stratasite/internal/app/store/apistats"
	auditstore "github.com/dalemusser/stratasite/internal/app/store/audit"
	mediastore "github.com/dalemusser/stratasite/internal/app/store/media"
	"github.com/dalemusser/stratasite/internal/app/store/oauthstate"
	"github.com/dalemusser/stratasite/internal/app/store/ratelimit"
	"github.com/dalemusser/stratasite/internal/app/system/seeding"
	"github.com/dalemusser/stratasite/internal/app/system/tasks"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// apiStatsRetention is how long hourly export usage buckets are kept.
const apiStatsRetention = 90 * 24 * time.Hour

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It seeds the first administrator when configured and starts the
// background task runner. Returning a non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.SeedAdminEmail != "" {
		err := seeding.SeedAdmin(ctx, deps.MongoDatabase, seeding.AdminSeed{
			Email:    appCfg.SeedAdminEmail,
			Name:     appCfg.SeedAdminName,
			Password: appCfg.SeedAdminPassword,
		}, logger)
		if err != nil {
			logger.Error("failed to seed admin user", zap.Error(err))
			return err
		}
	}

	startTaskRunner(appCfg, deps, logger)
	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner registers the maintenance jobs and starts them.
func startTaskRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	db := deps.MongoDatabase
	taskRunner = tasks.New(logger)

	taskRunner.Register(tasks.OAuthStateCleanupJob(oauthstate.New(db), logger))
	if appCfg.RateLimitEnabled {
		taskRunner.Register(tasks.LoginAttemptCleanupJob(loginLimiter(appCfg, deps), logger))
	}
	taskRunner.Register(tasks.SecurityEventPruneJob(deps.Monitor, appCfg.SecurityEventMaxAge, logger))
	taskRunner.Register(tasks.OrphanedMediaJob(mediastore.New(db), deps.FileStorage, logger))

	if appCfg.AuditRetention > 0 {
		taskRunner.Register(tasks.RetentionJob("audit-retention", auditstore.New(db).DeleteBefore, appCfg.AuditRetention, logger))
	}
	taskRunner.Register(tasks.RetentionJob("api-stats-retention", apistatsstore.New(db).DeleteBefore, apiStatsRetention, logger))

	for _, s := range deps.sweepers {
		taskRunner.Register(tasks.SweepJob(s.name, time.Minute, s.sweep, logger))
	}

	taskRunner.Start()
	logger.Info("background tasks started", zap.Strings("jobs", taskRunner.Names()))
}

// loginLimiter builds the failed-login store from config. It returns nil
// when login rate limiting is disabled.
func loginLimiter(appCfg AppConfig, deps DBDeps) *ratelimit.Store {
	if !appCfg.RateLimitEnabled {
		return nil
	}
	return ratelimit.New(
		deps.MongoDatabase,
		appCfg.RateLimitLoginAttempts,
		appCfg.RateLimitLoginWindow,
		appCfg.RateLimitLoginLockout,
	)
}
