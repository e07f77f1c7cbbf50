package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown runs after the HTTP server has drained. Jobs stop first, queued
// API usage writes flush while MongoDB is still connected, then the
// clients close. Every step runs even if an earlier one fails.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	type step struct {
		name string
		run  func(context.Context) error
	}
	var steps []step

	if taskRunner != nil {
		steps = append(steps, step{"background jobs", taskRunner.Stop})
	}
	if deps.APIStats != nil {
		steps = append(steps, step{"api stats flush", func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				deps.APIStats.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}})
	}
	if deps.Redis != nil {
		steps = append(steps, step{"redis", func(context.Context) error { return deps.Redis.Close() }})
	}
	if deps.MongoClient != nil {
		steps = append(steps, step{"mongodb", deps.MongoClient.Disconnect})
	}

	var errs []error
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			logger.Warn("shutdown step failed", zap.String("step", s.name), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		logger.Debug("shutdown step done", zap.String("step", s.name))
	}
	return errors.Join(errs...)
}
