package runner

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/julianstephens/timeblock/internal/logger"
	"github.com/julianstephens/timeblock/internal/scheduler"
)

// cronLogger routes cron's own logging into the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// StartCron runs RunAll on spec (standard five fields) until ctx is done.
// Overlapping ticks are skipped rather than queued.
func (r *Runner) StartCron(ctx context.Context, spec string, concurrency int, opts scheduler.Options) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, err := r.RunAll(ctx, TriggerCron, concurrency, opts); err != nil {
			logger.Error("Cron batch pass failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	c.Start()
	logger.Info("Batch scheduler started", "cron", spec, "concurrency", concurrency)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		logger.Info("Batch scheduler stopped")
	}()
	return c, nil
}
