package constants

import "time"

// SourceType identifies which backlog table a schedule instance was placed from.
type SourceType string

// InstanceStatus is the lifecycle state of a schedule instance.
type InstanceStatus string

// EnergyLevel describes how demanding a piece of work is, or what a window can absorb.
type EnergyLevel string

// PriorityLevel is the user-assigned importance tier of a backlog item.
type PriorityLevel string

// SchedulerMode changes how a backlog pass sizes items and reads window energy.
type SchedulerMode string

const (
	AppName            = "timeblock"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/timeblock/config.yaml"
	DefaultDBPath      = "~/.config/timeblock/timeblock.db"
	Version            = "v0.3.0"

	// DateFormat is the day key format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the wall-clock format of window boundaries (HH:MM)
	TimeFormat = "15:04"

	// TimestampFormat is the persisted ISO-8601 UTC layout. It is fixed width so
	// that stored values order lexically.
	TimestampFormat = "2006-01-02T15:04:05Z"

	// DayStartHour is the local hour at which a logical day begins.
	DayStartHour = 4

	MinutesPerDay = 24 * 60

	// Scheduler limits
	MaxScheduleLookaheadDays = 14
	DefaultWriteThroughDays  = 7
	RushDurationMultiplier   = 0.8

	// DefaultProjectDurationMin sizes a project that has neither its own
	// duration nor open tasks.
	DefaultProjectDurationMin = 60

	// Lease settings
	SchedulerLeaseTTL = 2 * time.Minute

	// Source types
	SourceTask    SourceType = "TASK"
	SourceProject SourceType = "PROJECT"
	SourceHabit   SourceType = "HABIT"

	// Instance statuses. The empty status is the persisted null and counts as visible.
	StatusNone      InstanceStatus = ""
	StatusScheduled InstanceStatus = "scheduled"
	StatusCompleted InstanceStatus = "completed"
	StatusMissed    InstanceStatus = "missed"
	StatusCanceled  InstanceStatus = "canceled"

	// Energy levels, lowest first
	EnergyNo      EnergyLevel = "NO"
	EnergyLow     EnergyLevel = "LOW"
	EnergyMedium  EnergyLevel = "MEDIUM"
	EnergyHigh    EnergyLevel = "HIGH"
	EnergyUltra   EnergyLevel = "ULTRA"
	EnergyExtreme EnergyLevel = "EXTREME"

	// Priority levels, lowest first
	PriorityNo            PriorityLevel = "NO"
	PriorityLow           PriorityLevel = "LOW"
	PriorityMedium        PriorityLevel = "MEDIUM"
	PriorityHigh          PriorityLevel = "HIGH"
	PriorityCritical      PriorityLevel = "CRITICAL"
	PriorityUltraCritical PriorityLevel = "ULTRA-CRITICAL"

	// Scheduler modes
	ModeRegular SchedulerMode = "REGULAR"
	ModeRush    SchedulerMode = "RUSH"
	ModeRest    SchedulerMode = "REST"

	// Task stages
	StageDone = "DONE"
)

// EnergyLevels lists every energy level in ascending order.
var EnergyLevels = []EnergyLevel{EnergyNo, EnergyLow, EnergyMedium, EnergyHigh, EnergyUltra, EnergyExtreme}

// PriorityLevels lists every priority level in ascending order.
var PriorityLevels = []PriorityLevel{PriorityNo, PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical, PriorityUltraCritical}

// IsVisible reports whether instances with this status take part in the
// non-overlap invariant and in rendering.
func (s InstanceStatus) IsVisible() bool {
	switch s {
	case StatusNone, StatusScheduled, StatusCompleted, StatusMissed:
		return true
	default:
		return false
	}
}
