package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/models"
)

// memStore is an in-memory Store for scheduler tests.
type memStore struct {
	mu          sync.Mutex
	profiles    map[string]models.Profile
	tasks       []models.Task
	projects    []models.Project
	habits      []models.Habit
	dayTypes    map[string]models.DayType
	assignments map[string]string
	instances   []models.ScheduleInstance
	insertErr   error
}

func newMemStore() *memStore {
	return &memStore{
		profiles:    make(map[string]models.Profile),
		dayTypes:    make(map[string]models.DayType),
		assignments: make(map[string]string),
	}
}

// withDefaultWindows installs a default day type holding the given windows.
func (m *memStore) withDefaultWindows(userID string, windows ...models.Window) *memStore {
	m.dayTypes["default"] = models.DayType{ID: "default", UserID: userID, Name: "DEFAULT", IsDefault: true, Windows: windows}
	return m
}

func (m *memStore) GetDayTypeAssignment(_ context.Context, userID, dateKey string) (models.DayTypeAssignment, error) {
	id, ok := m.assignments[userID+"|"+dateKey]
	if !ok {
		return models.DayTypeAssignment{}, apperrors.ErrNotFound
	}
	return models.DayTypeAssignment{UserID: userID, DateKey: dateKey, DayTypeID: id}, nil
}

func (m *memStore) GetDayType(_ context.Context, userID, id string) (models.DayType, error) {
	dt, ok := m.dayTypes[id]
	if !ok || dt.UserID != userID {
		return models.DayType{}, apperrors.ErrNotFound
	}
	return dt, nil
}

func (m *memStore) GetDefaultDayType(_ context.Context, userID string) (models.DayType, error) {
	for _, dt := range m.dayTypes {
		if dt.UserID == userID && dt.IsDefault {
			return dt, nil
		}
	}
	return models.DayType{}, apperrors.ErrNotFound
}

func (m *memStore) GetProfile(_ context.Context, userID string) (models.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return models.Profile{}, apperrors.ErrNotFound
	}
	return p, nil
}

func (m *memStore) GetTasks(context.Context, string) ([]models.Task, error) {
	return m.tasks, nil
}

func (m *memStore) GetProjects(context.Context, string) ([]models.Project, error) {
	return m.projects, nil
}

func (m *memStore) GetHabits(context.Context, string) ([]models.Habit, error) {
	return m.habits, nil
}

func (m *memStore) ListInstances(_ context.Context, userID string, from, to time.Time) ([]models.ScheduleInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ScheduleInstance
	for _, inst := range m.instances {
		if inst.UserID != userID {
			continue
		}
		if !from.IsZero() && !inst.EndUTC.After(from) {
			continue
		}
		if !to.IsZero() && !inst.StartUTC.Before(to) {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

func (m *memStore) InsertInstance(_ context.Context, inst models.ScheduleInstance) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return false, m.insertErr
	}
	for _, existing := range m.instances {
		if existing.Status == constants.StatusCanceled {
			continue
		}
		if existing.UserID == inst.UserID && existing.SourceType == inst.SourceType &&
			existing.SourceID == inst.SourceID && existing.StartUTC.Equal(inst.StartUTC) {
			return false, nil
		}
	}
	m.instances = append(m.instances, inst)
	return true, nil
}

func (m *memStore) MarkMissed(_ context.Context, userID string, now time.Time) ([]models.ScheduleInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var marked []models.ScheduleInstance
	for i, inst := range m.instances {
		if inst.UserID != userID || inst.Status != constants.StatusScheduled || !inst.EndUTC.Before(now) {
			continue
		}
		m.instances[i].Status = constants.StatusMissed
		m.instances[i].UpdatedAt = now
		marked = append(marked, m.instances[i])
	}
	return marked, nil
}

func (m *memStore) count(status constants.InstanceStatus) int {
	n := 0
	for _, inst := range m.instances {
		if inst.Status == status {
			n++
		}
	}
	return n
}

// sequentialIDs makes instance ids predictable in tests.
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("inst-%03d", n)
	}
}

func newTestScheduler(store *memStore) *Scheduler {
	s := New(store)
	s.newID = sequentialIDs()
	return s
}

func ptr[T any](v T) *T {
	return &v
}
