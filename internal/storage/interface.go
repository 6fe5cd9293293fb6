package storage

import (
	"context"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
	"github.com/julianstephens/timeblock/internal/migration"
	"github.com/julianstephens/timeblock/internal/models"
)

type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Load(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context, logFn func(string)) (int, error)
	SchemaStatus(ctx context.Context) (migration.Status, error)

	// Profiles
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	SaveProfile(ctx context.Context, p models.Profile) error
	ListUserIDs(ctx context.Context) ([]string, error)

	// Backlog
	AddTask(ctx context.Context, t models.Task) error
	GetTasks(ctx context.Context, userID string) ([]models.Task, error)
	AddProject(ctx context.Context, p models.Project) error
	GetProjects(ctx context.Context, userID string) ([]models.Project, error)
	AddHabit(ctx context.Context, h models.Habit) error
	GetHabits(ctx context.Context, userID string) ([]models.Habit, error)

	// Day types
	AddDayType(ctx context.Context, dt models.DayType) error
	AssignDayType(ctx context.Context, a models.DayTypeAssignment) error
	GetDayTypeAssignment(ctx context.Context, userID, dateKey string) (models.DayTypeAssignment, error)
	GetDayType(ctx context.Context, userID, id string) (models.DayType, error)
	GetDefaultDayType(ctx context.Context, userID string) (models.DayType, error)

	// Schedule instances
	ListInstances(ctx context.Context, userID string, from, to time.Time) ([]models.ScheduleInstance, error)
	InsertInstance(ctx context.Context, inst models.ScheduleInstance) (bool, error)
	UpdateInstanceStatus(ctx context.Context, userID, id string, status constants.InstanceStatus, now time.Time) error
	MarkMissed(ctx context.Context, userID string, now time.Time) ([]models.ScheduleInstance, error)

	// Leases
	// AcquireLease takes the user's lease if it is free or expired at now and
	// reports whether it did.
	AcquireLease(ctx context.Context, lease models.SchedulerLease, now time.Time) (bool, error)
	ReleaseLease(ctx context.Context, userID, token string) error

	// Utils
	GetConfigPath() string
}
