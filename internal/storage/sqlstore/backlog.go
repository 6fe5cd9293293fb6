package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/timeblock/internal/constants"
	"github.com/julianstephens/timeblock/internal/models"
)

func (s *Store) AddTask(ctx context.Context, t models.Task) error {
	_, err := s.exec(ctx, s.db, `
INSERT INTO tasks (id, user_id, name, duration_min, energy, priority, stage, project_id, goal_id, depends_on_task_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.DurationMin, string(t.Energy), string(t.Priority), t.Stage,
		t.ProjectID, t.GoalID, t.DependsOnTaskID, formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	return nil
}

func (s *Store) GetTasks(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := s.query(ctx, s.db, `
SELECT id, user_id, name, duration_min, energy, priority, stage, project_id, goal_id, depends_on_task_id, created_at
FROM tasks WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		var energy, priority, createdAt string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.DurationMin, &energy, &priority, &t.Stage,
			&t.ProjectID, &t.GoalID, &t.DependsOnTaskID, &createdAt); err != nil {
			return nil, err
		}
		t.Energy = constants.EnergyLevel(energy)
		t.Priority = constants.PriorityLevel(priority)
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("task %s: bad created_at: %w", t.ID, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) AddProject(ctx context.Context, p models.Project) error {
	_, err := s.exec(ctx, s.db, `
INSERT INTO projects (id, user_id, name, duration_min, energy, priority, stage, goal_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.DurationMin, string(p.Energy), string(p.Priority), p.Stage,
		p.GoalID, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add project: %w", err)
	}
	return nil
}

func (s *Store) GetProjects(ctx context.Context, userID string) ([]models.Project, error) {
	rows, err := s.query(ctx, s.db, `
SELECT id, user_id, name, duration_min, energy, priority, stage, goal_id, created_at
FROM projects WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		var energy, priority, createdAt string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.DurationMin, &energy, &priority, &p.Stage,
			&p.GoalID, &createdAt); err != nil {
			return nil, err
		}
		p.Energy = constants.EnergyLevel(energy)
		p.Priority = constants.PriorityLevel(priority)
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("project %s: bad created_at: %w", p.ID, err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *Store) AddHabit(ctx context.Context, h models.Habit) error {
	days := ""
	if len(h.RecurrenceDays) > 0 {
		raw, err := json.Marshal(h.RecurrenceDays)
		if err != nil {
			return fmt.Errorf("failed to encode recurrence days: %w", err)
		}
		days = string(raw)
	}
	_, err := s.exec(ctx, s.db, `
INSERT INTO habits (id, user_id, name, duration_min, energy, priority, recurrence, recurrence_days, created_at, last_completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.UserID, h.Name, h.DurationMin, string(h.Energy), string(h.Priority), h.Recurrence, days,
		formatTime(h.CreatedAt), formatNullableTime(h.LastCompletedAt))
	if err != nil {
		return fmt.Errorf("failed to add habit: %w", err)
	}
	return nil
}

// GetHabits returns the user's habits. A recurrence_days value that is not a
// JSON list is left empty so the scheduler falls back to the recurrence text.
func (s *Store) GetHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	rows, err := s.query(ctx, s.db, `
SELECT id, user_id, name, duration_min, energy, priority, recurrence, recurrence_days, created_at, last_completed_at
FROM habits WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get habits: %w", err)
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		var h models.Habit
		var energy, priority, days, createdAt string
		var lastCompleted sql.NullString
		if err := rows.Scan(&h.ID, &h.UserID, &h.Name, &h.DurationMin, &energy, &priority, &h.Recurrence,
			&days, &createdAt, &lastCompleted); err != nil {
			return nil, err
		}
		h.Energy = constants.EnergyLevel(energy)
		h.Priority = constants.PriorityLevel(priority)
		if days != "" {
			var list []any
			if err := json.Unmarshal([]byte(days), &list); err == nil {
				h.RecurrenceDays = list
			}
		}
		if h.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("habit %s: bad created_at: %w", h.ID, err)
		}
		if h.LastCompletedAt, err = parseNullableTime(lastCompleted); err != nil {
			return nil, fmt.Errorf("habit %s: bad last_completed_at: %w", h.ID, err)
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}
