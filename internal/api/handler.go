package api

import (
	"context"
	"time"

	"github.com/julianstephens/timeblock/internal/models"
	"github.com/julianstephens/timeblock/internal/runner"
	"github.com/julianstephens/timeblock/internal/scheduler"
)

// UserHeader carries the authenticated user id.
const UserHeader = "X-User-ID"

// Passes runs a scheduling pass for one user.
type Passes interface {
	Pass(ctx context.Context, trigger, userID string, opts scheduler.Options) (runner.PassResult, error)
}

// Views answers the read-only endpoints.
type Views interface {
	Windows(ctx context.Context, userID, dayKey string) ([]models.Window, error)
	ResolveLocation(ctx context.Context, userID string, timeZone *string, utcOffsetMinutes *int) (*time.Location, error)
	ComposeEvents(ctx context.Context, userID string, now time.Time, lookaheadDays int, timeZone *string, utcOffsetMinutes *int) (scheduler.EventsDataset, error)
}

type Handler struct {
	passes   Passes
	views    Views
	limiter  *userLimiter
	defaults scheduler.Options
	now      func() time.Time
}

// Config holds what NewHandler wires together.
type Config struct {
	Passes Passes
	Views  Views
	// RatePerSec and Burst bound POST /scheduler/run per user. A zero rate
	// disables the limit.
	RatePerSec float64
	Burst      int
	// Defaults fill request fields the caller left out.
	Defaults scheduler.Options
	Now      func() time.Time
}

func NewHandler(cfg Config) *Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		passes:   cfg.Passes,
		views:    cfg.Views,
		limiter:  newUserLimiter(cfg.RatePerSec, cfg.Burst),
		defaults: cfg.Defaults,
		now:      now,
	}
}
