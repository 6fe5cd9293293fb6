package models

import (
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
)

// Habit is a recurring practice. Recurrence holds the stored tag ("daily",
// "weekly", "every x days", "every 3 days", ...) and RecurrenceDays the raw
// list column, which may carry weekday numbers or an interval.
type Habit struct {
	ID              string                  `json:"id"`
	UserID          string                  `json:"user_id"`
	Name            string                  `json:"name"`
	DurationMin     int                     `json:"duration_min"`
	Energy          constants.EnergyLevel   `json:"energy"`
	Priority        constants.PriorityLevel `json:"priority"`
	Recurrence      string                  `json:"recurrence"`
	RecurrenceDays  []any                   `json:"recurrence_days,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	LastCompletedAt *time.Time              `json:"last_completed_at,omitempty"`
}
