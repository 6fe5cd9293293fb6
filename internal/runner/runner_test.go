package runner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/models"
	"github.com/julianstephens/timeblock/internal/scheduler"
	"github.com/julianstephens/timeblock/internal/storage/sqlite"
)

var passNow = time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)

func setupStore(t *testing.T, users ...string) *sqlite.Store {
	t.Helper()
	ctx := context.Background()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "timeblock.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	for _, user := range users {
		if err := store.SaveProfile(ctx, models.Profile{UserID: user, TimeZone: "UTC"}); err != nil {
			t.Fatal(err)
		}
		if err := store.AddDayType(ctx, models.DayType{
			ID: "dt-" + user, UserID: user, Name: "Default", IsDefault: true,
			Windows: []models.Window{{ID: "w-" + user, Label: "Morning", StartLocal: "09:00", EndLocal: "12:00", Energy: constants.EnergyHigh}},
		}); err != nil {
			t.Fatal(err)
		}
		if err := store.AddTask(ctx, models.Task{
			ID: "task-" + user, UserID: user, Name: "Write report", DurationMin: 60,
			Energy: constants.EnergyMedium, Priority: constants.PriorityHigh, CreatedAt: passNow.Add(-time.Hour),
		}); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func newTestRunner(store Store) *Runner {
	return New(store, WithClock(func() time.Time { return passNow }), WithHolder("test"))
}

func TestPassPlacesAndReleases(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t, "u1")
	r := newTestRunner(store)

	res, err := r.Pass(ctx, TriggerCLI, "u1", scheduler.Options{})
	if err != nil {
		t.Fatalf("Pass() error = %v", err)
	}
	if len(res.Backlog.Placed) != 1 || res.Backlog.Placed[0].SourceID != "task-u1" {
		t.Fatalf("placed = %+v, want the task", res.Backlog.Placed)
	}

	// The lease was released, so a second pass runs and finds nothing new.
	again, err := r.Pass(ctx, TriggerCLI, "u1", scheduler.Options{})
	if err != nil {
		t.Fatalf("second Pass() error = %v", err)
	}
	if len(again.Backlog.Placed) != 0 {
		t.Errorf("second pass placed %+v, want nothing", again.Backlog.Placed)
	}
}

func TestPassRequiresUser(t *testing.T) {
	r := newTestRunner(setupStore(t))
	if _, err := r.Pass(context.Background(), TriggerCLI, "  ", scheduler.Options{}); !apperrors.Is(err, apperrors.KindValidation) {
		t.Errorf("Pass() error = %v, want validation", err)
	}
}

func TestPassFailsFastOnHeldLease(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t, "u1")
	held := models.SchedulerLease{UserID: "u1", Token: "other", Holder: "elsewhere", AcquiredAt: passNow, ExpiresAt: passNow.Add(time.Minute)}
	if ok, err := store.AcquireLease(ctx, held, passNow); err != nil || !ok {
		t.Fatalf("AcquireLease() = %v, %v", ok, err)
	}

	_, err := newTestRunner(store).Pass(ctx, TriggerHTTP, "u1", scheduler.Options{})
	if !apperrors.Is(err, apperrors.KindLockContention) {
		t.Fatalf("Pass() error = %v, want lock contention", err)
	}
	instances, err := store.ListInstances(ctx, "u1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 0 {
		t.Errorf("contended pass wrote %d instances", len(instances))
	}
}

func TestPassTakesExpiredLease(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t, "u1")
	stale := models.SchedulerLease{UserID: "u1", Token: "crashed", Holder: "elsewhere", AcquiredAt: passNow.Add(-time.Hour), ExpiresAt: passNow.Add(-time.Minute)}
	if _, err := store.AcquireLease(ctx, stale, stale.AcquiredAt); err != nil {
		t.Fatal(err)
	}
	if _, err := newTestRunner(store).Pass(ctx, TriggerCron, "u1", scheduler.Options{}); err != nil {
		t.Errorf("Pass() over an expired lease error = %v", err)
	}
}

func TestPassRejectsBadMode(t *testing.T) {
	store := setupStore(t, "u1")
	_, err := newTestRunner(store).Pass(context.Background(), TriggerCLI, "u1", scheduler.Options{Mode: "SPRINT"})
	if !apperrors.Is(err, apperrors.KindValidation) {
		t.Errorf("Pass() error = %v, want validation", err)
	}
}

func TestRunAll(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t, "u1", "u2", "u3")
	held := models.SchedulerLease{UserID: "u2", Token: "other", AcquiredAt: passNow, ExpiresAt: passNow.Add(time.Minute)}
	if _, err := store.AcquireLease(ctx, held, passNow); err != nil {
		t.Fatal(err)
	}

	res, err := newTestRunner(store).RunAll(ctx, TriggerCron, 2, scheduler.Options{})
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if len(res.Succeeded) != 2 || res.Succeeded[0] != "u1" || res.Succeeded[1] != "u3" {
		t.Errorf("succeeded = %v, want [u1 u3]", res.Succeeded)
	}
	if len(res.Contended) != 1 || res.Contended[0] != "u2" {
		t.Errorf("contended = %v, want [u2]", res.Contended)
	}
	if len(res.Failed) != 0 {
		t.Errorf("failed = %v", res.Failed)
	}
}

func TestStartCronRejectsBadSpec(t *testing.T) {
	r := newTestRunner(setupStore(t))
	if _, err := r.StartCron(context.Background(), "every tuesday", 1, scheduler.Options{}); err == nil {
		t.Error("StartCron() accepted an invalid spec")
	}
}

func TestStartCronStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := newTestRunner(setupStore(t))
	c, err := r.StartCron(ctx, "*/15 * * * *", 1, scheduler.Options{})
	if err != nil {
		t.Fatalf("StartCron() error = %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Errorf("entries = %d, want 1", len(c.Entries()))
	}
	cancel()
}
