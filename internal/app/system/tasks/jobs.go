// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"io"
	"time"

	oauthstate "github.com/dalemusser/stratasite/internal/app/store/oauthstate"
	"github.com/dalemusser/stratasite/internal/app/store/ratelimit"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"go.uber.org/zap"
)

// OAuthStateCleanupJob removes expired Google sign-in states.
func OAuthStateCleanupJob(store *oauthstate.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			n, err := store.DeleteExpired(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("cleaned up expired oauth states", zap.Int64("deleted", n))
			}
			return nil
		},
	}
}

// LoginAttemptCleanupJob removes sign-in counters with no attempt for a day.
// Locked keys are kept until their lockout ends.
func LoginAttemptCleanupJob(store *ratelimit.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "login-attempt-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			n, err := store.Cleanup(ctx, time.Now().Add(-24*time.Hour))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("cleaned up login attempt records", zap.Int64("deleted", n))
			}
			return nil
		},
	}
}

// SecurityEventPruneJob drops in-memory security events older than maxAge.
func SecurityEventPruneJob(monitor *security.Monitor, maxAge time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "security-event-prune",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			if n := monitor.Prune(time.Now().Add(-maxAge)); n > 0 {
				logger.Info("pruned security events",
					zap.Int("removed", n),
					zap.Duration("max_age", maxAge))
			}
			return nil
		},
	}
}

// RetentionJob deletes records older than maxAge once a day. It serves the
// audit log and the API usage buckets.
func RetentionJob(name string, deleteBefore func(context.Context, time.Time) (int64, error), maxAge time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     name,
		Interval: 24 * time.Hour,
		Run: func(ctx context.Context) error {
			n, err := deleteBefore(ctx, time.Now().Add(-maxAge))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("deleted expired records", zap.String("job", name), zap.Int64("deleted", n))
			}
			return nil
		},
	}
}

// ObjectGetter is the part of storage.Store the media sweep needs.
type ObjectGetter interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
}

// MediaLister iterates media library records.
type MediaLister interface {
	ForEach(ctx context.Context, fn func(models.Media) error) error
}

// OrphanedMediaJob logs media records whose storage object no longer
// resolves. Records are not deleted; an admin decides what to do.
func OrphanedMediaJob(media MediaLister, objects ObjectGetter, logger *zap.Logger) Job {
	return Job{
		Name:     "orphaned-media-sweep",
		Interval: 24 * time.Hour,
		Run: func(ctx context.Context) error {
			var checked, missing int
			err := media.ForEach(ctx, func(m models.Media) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				checked++
				r, err := objects.Get(ctx, m.Path)
				if err != nil {
					missing++
					logger.Warn("media object missing",
						zap.String("media_id", m.ID.Hex()),
						zap.String("path", m.Path),
						zap.Error(err))
					return nil
				}
				_ = r.Close()
				return nil
			})
			if err != nil {
				return err
			}
			logger.Info("orphaned media sweep finished",
				zap.Int("checked", checked),
				zap.Int("missing", missing))
			return nil
		},
	}
}

// SweepJob runs an in-memory expiry sweep, such as the fallback response
// cache or rate counters used when Redis is not configured.
func SweepJob(name string, interval time.Duration, sweep func() int, logger *zap.Logger) Job {
	return Job{
		Name:     name,
		Interval: interval,
		Run: func(ctx context.Context) error {
			if n := sweep(); n > 0 {
				logger.Debug("swept expired entries", zap.String("job", name), zap.Int("removed", n))
			}
			return nil
		},
	}
}
