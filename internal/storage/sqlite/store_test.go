package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/models"
)

const user = "user-1"

var base = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "nested", "timeblock.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to initialize test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadRequiresInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	err := store.Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "init") {
		t.Errorf("Load() error = %v, want not initialized", err)
	}
}

func TestInitThenLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "timeblock.db")
	first := NewStore(path)
	if err := first.Init(ctx); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second := NewStore(path)
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load() after Init error = %v", err)
	}
	defer second.Close()
	if n, err := second.Migrate(ctx, nil); err != nil || n != 0 {
		t.Errorf("Migrate() on current schema = %d, %v", n, err)
	}
	if second.GetConfigPath() != path {
		t.Errorf("GetConfigPath() = %q", second.GetConfigPath())
	}
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	if _, err := store.GetProfile(ctx, user); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetProfile() on empty store error = %v, want ErrNotFound", err)
	}
	for _, p := range []models.Profile{
		{UserID: "user-2", TimeZone: "UTC"},
		{UserID: user, TimeZone: "UTC"},
		{UserID: user, TimeZone: "America/New_York"},
	} {
		if err := store.SaveProfile(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	p, err := store.GetProfile(ctx, user)
	if err != nil || p.TimeZone != "America/New_York" {
		t.Errorf("GetProfile() = %+v, %v", p, err)
	}
	ids, err := store.ListUserIDs(ctx)
	if err != nil || len(ids) != 2 || ids[0] != user {
		t.Errorf("ListUserIDs() = %v, %v", ids, err)
	}
}

func TestBacklogRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	task := models.Task{ID: "t1", UserID: user, Name: "Write", DurationMin: 45, Energy: constants.EnergyHigh,
		Priority: constants.PriorityCritical, Stage: "TODO", ProjectID: "p1", DependsOnTaskID: "t0", CreatedAt: base}
	project := models.Project{ID: "p1", UserID: user, Name: "Book", Energy: constants.EnergyMedium,
		Priority: constants.PriorityHigh, Stage: "ACTIVE", CreatedAt: base}
	done := base.Add(24 * time.Hour)
	habit := models.Habit{ID: "h1", UserID: user, Name: "Run", DurationMin: 30, Recurrence: "every x days",
		RecurrenceDays: []any{3}, CreatedAt: base, LastCompletedAt: &done}

	if err := store.AddTask(ctx, task); err != nil {
		t.Fatal(err)
	}
	if err := store.AddProject(ctx, project); err != nil {
		t.Fatal(err)
	}
	if err := store.AddHabit(ctx, habit); err != nil {
		t.Fatal(err)
	}
	if err := store.AddTask(ctx, models.Task{ID: "other", UserID: "user-2", Name: "x", CreatedAt: base}); err != nil {
		t.Fatal(err)
	}

	tasks, err := store.GetTasks(ctx, user)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("GetTasks() = %+v, %v", tasks, err)
	}
	gotTask := tasks[0]
	if !gotTask.CreatedAt.Equal(base) {
		t.Errorf("task created_at = %v", gotTask.CreatedAt)
	}
	gotTask.CreatedAt = task.CreatedAt
	if gotTask != task {
		t.Errorf("task = %+v, want %+v", gotTask, task)
	}

	projects, err := store.GetProjects(ctx, user)
	if err != nil || len(projects) != 1 {
		t.Fatalf("GetProjects() = %+v, %v", projects, err)
	}
	if projects[0].Name != "Book" || projects[0].Energy != constants.EnergyMedium || projects[0].DurationMin != 0 {
		t.Errorf("project = %+v", projects[0])
	}

	habits, err := store.GetHabits(ctx, user)
	if err != nil || len(habits) != 1 {
		t.Fatalf("GetHabits() = %+v, %v", habits, err)
	}
	got := habits[0]
	if len(got.RecurrenceDays) != 1 || got.RecurrenceDays[0] != float64(3) {
		t.Errorf("recurrence days = %#v", got.RecurrenceDays)
	}
	if got.LastCompletedAt == nil || !got.LastCompletedAt.Equal(done) {
		t.Errorf("last completed = %v", got.LastCompletedAt)
	}
}

func TestDayTypes(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	if _, err := store.GetDefaultDayType(ctx, user); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetDefaultDayType() error = %v, want ErrNotFound", err)
	}

	work := models.DayType{ID: "work", UserID: user, Name: "Work", IsDefault: true, Windows: []models.Window{
		{ID: "w2", Label: "Afternoon", StartLocal: "13:00", EndLocal: "17:00", Energy: constants.EnergyMedium},
		{ID: "w1", Label: "Morning", StartLocal: "09:00", EndLocal: "12:00", Energy: constants.EnergyHigh},
	}}
	rest := models.DayType{ID: "rest", UserID: user, Name: "Rest", IsDefault: true, Windows: []models.Window{
		{ID: "w3", StartLocal: "10:00", EndLocal: "11:00"},
	}}
	if err := store.AddDayType(ctx, work); err != nil {
		t.Fatal(err)
	}
	if err := store.AddDayType(ctx, rest); err != nil {
		t.Fatal(err)
	}

	def, err := store.GetDefaultDayType(ctx, user)
	if err != nil || def.ID != "rest" {
		t.Fatalf("default day type = %+v, %v; the latest default wins", def, err)
	}
	if def.Windows[0].Energy != "" {
		t.Errorf("unlabeled window energy = %q", def.Windows[0].Energy)
	}

	got, err := store.GetDayType(ctx, user, "work")
	if err != nil {
		t.Fatal(err)
	}
	if got.IsDefault || len(got.Windows) != 2 || got.Windows[0].ID != "w2" || got.Windows[1].DayTypeID != "work" {
		t.Errorf("work day type = %+v, windows keep insertion order", got)
	}
	if _, err := store.GetDayType(ctx, "user-2", "work"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetDayType() for another user error = %v", err)
	}

	if err := store.AssignDayType(ctx, models.DayTypeAssignment{UserID: user, DateKey: "2024-05-01", DayTypeID: "rest"}); err != nil {
		t.Fatal(err)
	}
	if err := store.AssignDayType(ctx, models.DayTypeAssignment{UserID: user, DateKey: "2024-05-01", DayTypeID: "work"}); err != nil {
		t.Fatal(err)
	}
	a, err := store.GetDayTypeAssignment(ctx, user, "2024-05-01")
	if err != nil || a.DayTypeID != "work" {
		t.Errorf("assignment = %+v, %v", a, err)
	}
	if _, err := store.GetDayTypeAssignment(ctx, user, "2024-05-02"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("missing assignment error = %v", err)
	}
}

func newInstance(id, source string, start time.Time, status constants.InstanceStatus) models.ScheduleInstance {
	return models.ScheduleInstance{
		ID: id, UserID: user, SourceType: constants.SourceTask, SourceID: source,
		StartUTC: start, EndUTC: start.Add(time.Hour), DurationMin: 60, Status: status,
		WeightSnapshot: 32, EnergyResolved: "HIGH", WindowID: "w1", DayKey: "2024-05-01", CreatedAt: base,
	}
}

func TestInsertInstanceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	start := base.Add(9 * time.Hour)

	ok, err := store.InsertInstance(ctx, newInstance("i1", "t1", start, constants.StatusScheduled))
	if err != nil || !ok {
		t.Fatalf("first insert = %v, %v", ok, err)
	}
	ok, err = store.InsertInstance(ctx, newInstance("i2", "t1", start, constants.StatusScheduled))
	if err != nil || ok {
		t.Fatalf("duplicate insert = %v, %v; want silently ignored", ok, err)
	}

	if err := store.UpdateInstanceStatus(ctx, user, "i1", constants.StatusCanceled, base); err != nil {
		t.Fatal(err)
	}
	ok, err = store.InsertInstance(ctx, newInstance("i3", "t1", start, constants.StatusScheduled))
	if err != nil || !ok {
		t.Errorf("insert over canceled row = %v, %v; canceled rows must not block", ok, err)
	}

	all, err := store.ListInstances(ctx, user, time.Time{}, time.Time{})
	if err != nil || len(all) != 2 {
		t.Fatalf("ListInstances() = %+v, %v", all, err)
	}
	if all[0].WeightSnapshot != 32 || all[0].DayKey != "2024-05-01" || !all[0].StartUTC.Equal(start) {
		t.Errorf("round trip lost fields: %+v", all[0])
	}

	if err := store.UpdateInstanceStatus(ctx, user, "nope", constants.StatusCompleted, base); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("UpdateInstanceStatus() on missing row error = %v", err)
	}
}

func TestListInstancesRange(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	for i, h := range []int{6, 9, 12, 30} {
		inst := newInstance(string(rune('a'+i)), "t", base.Add(time.Duration(h)*time.Hour), constants.StatusNone)
		if _, err := store.InsertInstance(ctx, inst); err != nil {
			t.Fatal(err)
		}
	}
	got, err := store.ListInstances(ctx, user, base.Add(7*time.Hour), base.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("ranged instances = %+v", got)
	}
	if got[0].Status != constants.StatusNone {
		t.Errorf("null status read back as %q", got[0].Status)
	}
}

func TestMarkMissed(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	now := base.Add(12 * time.Hour)
	rows := []models.ScheduleInstance{
		newInstance("past", "t1", base.Add(8*time.Hour), constants.StatusScheduled),
		newInstance("done", "t2", base.Add(8*time.Hour), constants.StatusCompleted),
		newInstance("running", "t3", base.Add(11*time.Hour+30*time.Minute), constants.StatusScheduled),
	}
	for _, r := range rows {
		if _, err := store.InsertInstance(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	marked, err := store.MarkMissed(ctx, user, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(marked) != 1 || marked[0].ID != "past" || marked[0].Status != constants.StatusMissed {
		t.Errorf("marked = %+v", marked)
	}
	again, err := store.MarkMissed(ctx, user, now)
	if err != nil || len(again) != 0 {
		t.Errorf("second MarkMissed() = %+v, %v", again, err)
	}
}

func TestLeases(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	now := base
	lease := func(token string, at time.Time) models.SchedulerLease {
		return models.SchedulerLease{UserID: user, Token: token, Holder: "test", AcquiredAt: at, ExpiresAt: at.Add(constants.SchedulerLeaseTTL)}
	}

	ok, err := store.AcquireLease(ctx, lease("a", now), now)
	if err != nil || !ok {
		t.Fatalf("first acquire = %v, %v", ok, err)
	}
	ok, err = store.AcquireLease(ctx, lease("b", now.Add(time.Minute)), now.Add(time.Minute))
	if err != nil || ok {
		t.Fatalf("acquire while held = %v, %v", ok, err)
	}

	// A stale token must not release someone else's lease.
	if err := store.ReleaseLease(ctx, user, "b"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := store.AcquireLease(ctx, lease("c", now.Add(time.Minute)), now.Add(time.Minute)); ok {
		t.Fatal("lease stolen after releasing with the wrong token")
	}

	later := now.Add(constants.SchedulerLeaseTTL)
	ok, err = store.AcquireLease(ctx, lease("d", later), later)
	if err != nil || !ok {
		t.Fatalf("acquire after expiry = %v, %v", ok, err)
	}
	if err := store.ReleaseLease(ctx, user, "d"); err != nil {
		t.Fatal(err)
	}
	ok, err = store.AcquireLease(ctx, lease("e", later), later)
	if err != nil || !ok {
		t.Errorf("acquire after release = %v, %v", ok, err)
	}
}
