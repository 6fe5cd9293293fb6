package models

import (
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
)

// Task is a single unit of work owned by the CRUD subsystem.
type Task struct {
	ID              string                  `json:"id"`
	UserID          string                  `json:"user_id"`
	Name            string                  `json:"name"`
	DurationMin     int                     `json:"duration_min"`
	Energy          constants.EnergyLevel   `json:"energy"`
	Priority        constants.PriorityLevel `json:"priority"`
	Stage           string                  `json:"stage"`
	ProjectID       string                  `json:"project_id,omitempty"`
	GoalID          string                  `json:"goal_id,omitempty"`
	DependsOnTaskID string                  `json:"depends_on_task_id,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

// IsDone reports whether the task has reached its final stage.
func (t Task) IsDone() bool {
	return t.Stage == constants.StageDone
}

// Project groups tasks under a goal. When DurationMin is zero the project's
// allocatable time is the sum of its open tasks.
type Project struct {
	ID          string                  `json:"id"`
	UserID      string                  `json:"user_id"`
	Name        string                  `json:"name"`
	DurationMin int                     `json:"duration_min,omitempty"`
	Energy      constants.EnergyLevel   `json:"energy"`
	Priority    constants.PriorityLevel `json:"priority"`
	Stage       string                  `json:"stage"`
	GoalID      string                  `json:"goal_id,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// IsDone reports whether the project has reached its final stage.
func (p Project) IsDone() bool {
	return p.Stage == constants.StageDone
}
