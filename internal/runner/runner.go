// Package runner drives scheduling passes: one user under a lease, every
// user in a bounded batch, or the batch on a cron schedule.
package runner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/logger"
	"github.com/julianstephens/timeblock/internal/metrics"
	"github.com/julianstephens/timeblock/internal/models"
	"github.com/julianstephens/timeblock/internal/scheduler"
)

// Triggers label where a pass came from.
const (
	TriggerHTTP = "http"
	TriggerCLI  = "cli"
	TriggerCron = "cron"
)

// Store is what a pass needs beyond the scheduler's reads and writes.
type Store interface {
	scheduler.Store
	AcquireLease(ctx context.Context, lease models.SchedulerLease, now time.Time) (bool, error)
	ReleaseLease(ctx context.Context, userID, token string) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

type Runner struct {
	store    Store
	sched    *scheduler.Scheduler
	holder   string
	ttl      time.Duration
	now      func() time.Time
	newToken func() string
}

type Option func(*Runner)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithLeaseTTL bounds how long a pass may hold the user's lease.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(r *Runner) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithHolder names this process in lease rows.
func WithHolder(holder string) Option {
	return func(r *Runner) { r.holder = holder }
}

func New(store Store, opts ...Option) *Runner {
	r := &Runner{
		store:    store,
		sched:    scheduler.New(store),
		holder:   defaultHolder(),
		ttl:      constants.SchedulerLeaseTTL,
		now:      time.Now,
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultHolder() string {
	host, err := os.Hostname()
	if err != nil {
		host = constants.AppName
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}

// PassResult is what one user's pass did.
type PassResult struct {
	UserID  string                  `json:"userId"`
	Missed  scheduler.MissedResult  `json:"missed"`
	Backlog scheduler.BacklogResult `json:"backlog"`
}

// Pass runs missed reconciliation and then a backlog pass for one user while
// holding that user's lease. A held lease fails fast with a lock contention
// error; the pass never waits for it.
func (r *Runner) Pass(ctx context.Context, trigger, userID string, opts scheduler.Options) (PassResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return PassResult{}, apperrors.Validation("run scheduler", "user id is required")
	}
	if _, err := scheduler.ParseMode(opts.Mode); err != nil {
		return PassResult{}, err
	}

	now := r.now().UTC()
	lease := models.SchedulerLease{
		UserID:     userID,
		Token:      r.newToken(),
		Holder:     r.holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(r.ttl),
	}
	ok, err := r.store.AcquireLease(ctx, lease, now)
	if err != nil {
		metrics.PassesTotal.WithLabelValues(trigger, metrics.OutcomeError).Inc()
		return PassResult{}, apperrors.Persistence("acquire lease", err)
	}
	if !ok {
		metrics.PassesTotal.WithLabelValues(trigger, metrics.OutcomeContention).Inc()
		logger.Info("Scheduling pass already running", "user_id", userID, "trigger", trigger)
		return PassResult{}, apperrors.LockContention(userID)
	}
	defer r.release(ctx, lease)

	// The pass must not outlive its lease.
	ctx, cancel := context.WithTimeout(ctx, r.ttl)
	defer cancel()

	start := time.Now()
	result, err := r.run(ctx, userID, now, opts)
	metrics.PassDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PassesTotal.WithLabelValues(trigger, metrics.OutcomeError).Inc()
		return result, err
	}

	metrics.PassesTotal.WithLabelValues(trigger, metrics.OutcomeOK).Inc()
	metrics.InstancesMissed.Add(float64(len(result.Missed.MarkedMissedIDs)))
	metrics.InstancesPlaced.Add(float64(len(result.Backlog.Placed)))
	metrics.ItemsDeferred.Add(float64(len(result.Backlog.Deferred)))
	metrics.ItemsSkipped.Add(float64(len(result.Backlog.Skipped)))
	return result, nil
}

func (r *Runner) run(ctx context.Context, userID string, now time.Time, opts scheduler.Options) (PassResult, error) {
	result := PassResult{UserID: userID}
	missed, err := r.sched.MarkMissedAndQueue(ctx, userID, now)
	if err != nil {
		return result, err
	}
	result.Missed = missed

	backlog, err := r.sched.ScheduleBacklog(ctx, userID, now, opts)
	if err != nil {
		return result, err
	}
	result.Backlog = backlog
	return result, nil
}

func (r *Runner) release(ctx context.Context, lease models.SchedulerLease) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.store.ReleaseLease(ctx, lease.UserID, lease.Token); err != nil {
		// The lease expires on its own after the TTL.
		logger.Warn("Failed to release scheduler lease", "user_id", lease.UserID, "error", err)
	}
}
