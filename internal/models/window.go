package models

import "github.com/julianstephens/timeblock/internal/constants"

// Window is a span of local wall-clock time available for work. FromPrevDay
// marks the visible tail of a window that started on the previous day.
type Window struct {
	ID          string                `json:"id"`
	DayTypeID   string                `json:"day_type_id,omitempty"`
	Label       string                `json:"label"`
	StartLocal  string                `json:"start_local"` // HH:MM
	EndLocal    string                `json:"end_local"`   // HH:MM
	Energy      constants.EnergyLevel `json:"energy,omitempty"`
	FromPrevDay bool                  `json:"fromPrevDay"`
}

// DayType is a reusable template of windows.
type DayType struct {
	ID        string   `json:"id"`
	UserID    string   `json:"user_id"`
	Name      string   `json:"name"`
	IsDefault bool     `json:"is_default"`
	Windows   []Window `json:"windows"`
}

// DayTypeAssignment pins a day type to a logical day.
type DayTypeAssignment struct {
	UserID    string `json:"user_id"`
	DateKey   string `json:"date_key"` // YYYY-MM-DD
	DayTypeID string `json:"day_type_id"`
}
