package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/models"
	"github.com/julianstephens/timeblock/internal/utils"
)

// Store is the persistence the scheduler reads backlog from and writes
// instances to. storage.Provider satisfies it.
type Store interface {
	DayTypeSource

	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	GetTasks(ctx context.Context, userID string) ([]models.Task, error)
	GetProjects(ctx context.Context, userID string) ([]models.Project, error)
	GetHabits(ctx context.Context, userID string) ([]models.Habit, error)

	// ListInstances returns every instance of the user intersecting [from, to).
	// A zero bound is open.
	ListInstances(ctx context.Context, userID string, from, to time.Time) ([]models.ScheduleInstance, error)
	// InsertInstance reports false when an instance for the same source and
	// start already exists.
	InsertInstance(ctx context.Context, inst models.ScheduleInstance) (bool, error)
	// MarkMissed moves every scheduled instance that ended before now to
	// missed in one transaction and returns the rows it changed.
	MarkMissed(ctx context.Context, userID string, now time.Time) ([]models.ScheduleInstance, error)
}

type Scheduler struct {
	store    Store
	resolver DayTypeResolver
	newID    func() string
}

func New(store Store) *Scheduler {
	return &Scheduler{
		store:    store,
		resolver: NewResolverChain(store),
		newID:    uuid.NewString,
	}
}

// Windows returns the windows of a logical day for a user.
func (s *Scheduler) Windows(ctx context.Context, userID, dayKey string) ([]models.Window, error) {
	return WindowsForDate(ctx, s.resolver, userID, dayKey)
}

// ResolveLocation picks the zone a user's pass runs in: an explicitly supplied
// zone, then the profile zone, then a reported UTC offset, then UTC. A zone
// that is supplied but malformed is an error, never UTC.
func (s *Scheduler) ResolveLocation(ctx context.Context, userID string, timeZone *string, utcOffsetMinutes *int) (*time.Location, error) {
	if timeZone != nil {
		return utils.ResolveLocation(*timeZone, true)
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Persistence("get profile", err)
	}
	if strings.TrimSpace(profile.TimeZone) != "" {
		return utils.LoadLocation(profile.TimeZone)
	}

	if utcOffsetMinutes != nil {
		return utils.FixedZoneFromOffset(*utcOffsetMinutes), nil
	}
	return time.UTC, nil
}

// ParseMode normalizes a scheduler mode. Empty means REGULAR.
func ParseMode(raw constants.SchedulerMode) (constants.SchedulerMode, error) {
	mode := constants.SchedulerMode(strings.ToUpper(strings.TrimSpace(string(raw))))
	switch mode {
	case "":
		return constants.ModeRegular, nil
	case constants.ModeRegular, constants.ModeRush, constants.ModeRest:
		return mode, nil
	default:
		return "", apperrors.Validation("parse mode", "unknown scheduler mode %q", raw)
	}
}

// Horizon bounds the number of days a pass looks ahead.
func Horizon(writeThroughDays int) int {
	if writeThroughDays <= 0 {
		return constants.DefaultWriteThroughDays
	}
	if writeThroughDays > constants.MaxScheduleLookaheadDays {
		return constants.MaxScheduleLookaheadDays
	}
	return writeThroughDays
}

// ClampLookahead bounds an events lookahead to [1, MaxScheduleLookaheadDays].
func ClampLookahead(days int) int {
	if days < 1 {
		return 1
	}
	if days > constants.MaxScheduleLookaheadDays {
		return constants.MaxScheduleLookaheadDays
	}
	return days
}

// instanceDayKey is the logical day an instance was placed on.
func instanceDayKey(inst models.ScheduleInstance, loc *time.Location) string {
	if inst.DayKey != "" {
		return inst.DayKey
	}
	return utils.DayKey(inst.StartUTC, loc)
}
