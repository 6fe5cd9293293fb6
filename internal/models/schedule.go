package models

import (
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
)

// ScheduleInstance is a persisted placement of a backlog item into UTC time.
// WeightSnapshot is written once at insert and never updated.
type ScheduleInstance struct {
	ID             string                   `json:"id"`
	UserID         string                   `json:"user_id"`
	SourceType     constants.SourceType     `json:"source_type"`
	SourceID       string                   `json:"source_id"`
	StartUTC       time.Time                `json:"start_utc"`
	EndUTC         time.Time                `json:"end_utc"`
	DurationMin    int                      `json:"duration_min"`
	Status         constants.InstanceStatus `json:"status"`
	WeightSnapshot float64                  `json:"weight_snapshot"`
	EnergyResolved string                   `json:"energy_resolved"`
	Locked         bool                     `json:"locked"`
	WindowID       string                   `json:"window_id,omitempty"`
	DayKey         string                   `json:"day_key,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// Overlaps reports whether the half-open intervals of both instances intersect.
func (s ScheduleInstance) Overlaps(o ScheduleInstance) bool {
	return s.StartUTC.Before(o.EndUTC) && o.StartUTC.Before(s.EndUTC)
}

// BacklogItem is the scheduler's uniform view over tasks, projects and habit
// occurrences. DayKey is only set for habit occurrences, which may only be
// placed on that logical day.
type BacklogItem struct {
	ID          string                  `json:"id"`
	SourceType  constants.SourceType    `json:"source_type"`
	Name        string                  `json:"name"`
	DurationMin int                     `json:"duration_min"`
	Energy      constants.EnergyLevel   `json:"energy"`
	Priority    constants.PriorityLevel `json:"priority"`
	Stage       string                  `json:"stage,omitempty"`
	Locked      bool                    `json:"locked"`
	GoalID      string                  `json:"goal_id,omitempty"`
	ProjectID   string                  `json:"project_id,omitempty"`
	DayKey      string                  `json:"day_key,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// Key identifies an item within one pass. Habit occurrences share the habit id
// so the day key is part of the key.
func (b BacklogItem) Key() string {
	if b.DayKey != "" {
		return string(b.SourceType) + ":" + b.ID + "@" + b.DayKey
	}
	return string(b.SourceType) + ":" + b.ID
}

// Profile carries the collaborator metadata the engine reads for a user.
type Profile struct {
	UserID   string `json:"user_id"`
	TimeZone string `json:"time_zone"`
}

// SchedulerLease is the per-user critical-section marker for backlog passes.
type SchedulerLease struct {
	UserID     string    `json:"user_id"`
	Token      string    `json:"token"`
	Holder     string    `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
