package scheduler

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/logger"
	"github.com/julianstephens/timeblock/internal/models"
	"github.com/julianstephens/timeblock/internal/utils"
)

// Options configures a backlog pass. A nil TimeZone means none was supplied.
type Options struct {
	Mode             constants.SchedulerMode `json:"mode,omitempty"`
	WriteThroughDays int                     `json:"writeThroughDays,omitempty"`
	TimeZone         *string                 `json:"timeZone,omitempty"`
	UTCOffsetMinutes *int                    `json:"utcOffsetMinutes,omitempty"`
}

// ItemOutcome explains why a backlog item was not placed.
type ItemOutcome struct {
	ID         string               `json:"id"`
	SourceType constants.SourceType `json:"sourceType"`
	Name       string               `json:"name,omitempty"`
	DayKey     string               `json:"dayKey,omitempty"`
	Reason     string               `json:"reason"`
}

// BacklogResult summarizes one backlog pass.
type BacklogResult struct {
	Placed      []models.ScheduleInstance `json:"placed"`
	Deferred    []ItemOutcome             `json:"deferred"`
	Skipped     []ItemOutcome             `json:"skipped"`
	TimeZone    string                    `json:"timeZone"`
	HorizonDays int                       `json:"horizonDays"`
}

type readyItem struct {
	item   models.BacklogItem
	weight int
	habit  *habitState
}

// habitState tracks a habit's occurrences while a pass places new ones.
type habitState struct {
	habit          models.Habit
	rule           utils.Recurrence
	energy         constants.EnergyLevel
	priority       constants.PriorityLevel
	anchor         string
	lastCompleted  string
	latest         string
	occurrenceDays map[string]bool
}

func (h *habitState) history(dayKey string) utils.RecurrenceHistory {
	hist := utils.RecurrenceHistory{AnchorDayKey: h.anchor, LastCompletedDayKey: h.lastCompleted}
	if h.rule.PerDay() {
		// Per-day rules only care whether this particular day is taken.
		if h.occurrenceDays[dayKey] {
			hist.LastOccurrenceDayKey = dayKey
		}
		return hist
	}
	hist.LastOccurrenceDayKey = h.latest
	return hist
}

func (h *habitState) record(dayKey string) {
	h.occurrenceDays[dayKey] = true
	if utils.CompareDayKeys(dayKey, h.latest) > 0 {
		h.latest = dayKey
	}
}

func (h *habitState) occurrence(dayKey string) readyItem {
	return readyItem{
		item: models.BacklogItem{
			ID:          h.habit.ID,
			SourceType:  constants.SourceHabit,
			Name:        h.habit.Name,
			DurationMin: h.habit.DurationMin,
			Energy:      h.energy,
			Priority:    h.priority,
			DayKey:      dayKey,
			CreatedAt:   h.habit.CreatedAt,
		},
		weight: Weight(h.priority, h.energy),
		habit:  h,
	}
}

// deferralKey groups unplaced occurrences: each day of a per-day rule is its
// own occurrence, interval habits carry one pending occurrence forward.
func (h *habitState) deferralKey(dayKey string) string {
	if h.rule.PerDay() {
		return string(constants.SourceHabit) + ":" + h.habit.ID + "@" + dayKey
	}
	return string(constants.SourceHabit) + ":" + h.habit.ID
}

// ScheduleBacklog places ready backlog items into the user's windows, day by
// day from now's logical day across the horizon. It reads existing instances
// from the store on every call, so re-running it is safe.
func (s *Scheduler) ScheduleBacklog(ctx context.Context, userID string, now time.Time, opts Options) (BacklogResult, error) {
	result := BacklogResult{
		Placed:   []models.ScheduleInstance{},
		Deferred: []ItemOutcome{},
		Skipped:  []ItemOutcome{},
	}
	if strings.TrimSpace(userID) == "" {
		return result, apperrors.Validation("schedule backlog", "user id is required")
	}
	mode, err := ParseMode(opts.Mode)
	if err != nil {
		return result, err
	}
	loc, err := s.ResolveLocation(ctx, userID, opts.TimeZone, opts.UTCOffsetMinutes)
	if err != nil {
		return result, err
	}
	horizon := Horizon(opts.WriteThroughDays)
	result.TimeZone = loc.String()
	result.HorizonDays = horizon

	existing, err := s.store.ListInstances(ctx, userID, time.Time{}, time.Time{})
	if err != nil {
		return result, apperrors.Persistence("list instances", err)
	}
	tasks, err := s.store.GetTasks(ctx, userID)
	if err != nil {
		return result, apperrors.Persistence("get tasks", err)
	}
	projects, err := s.store.GetProjects(ctx, userID)
	if err != nil {
		return result, apperrors.Persistence("get projects", err)
	}
	habits, err := s.store.GetHabits(ctx, userID)
	if err != nil {
		return result, apperrors.Persistence("get habits", err)
	}

	items, skipped := collectItems(tasks, projects, existing, mode)
	habitStates, habitSkipped := collectHabits(habits, existing, loc)
	result.Skipped = append(result.Skipped, skipped...)
	result.Skipped = append(result.Skipped, habitSkipped...)
	for _, sk := range result.Skipped {
		logger.Warn("Skipping malformed backlog item", "user_id", userID, "source_type", sk.SourceType, "id", sk.ID, "reason", sk.Reason)
	}

	busy := newOccupancy(existing)
	notBefore := ceilMinute(now)
	firstDay := utils.DayKey(now, loc)
	placed := make(map[string]bool)
	habitDeferred := make(map[string]ItemOutcome)
	var habitDeferredOrder []string

	for i := 0; i < horizon; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		dayKey, err := utils.AddDays(firstDay, i)
		if err != nil {
			return result, err
		}
		windows, err := WindowsForDate(ctx, s.resolver, userID, dayKey)
		if err != nil {
			return result, err
		}
		intervals, err := ResolveIntervals(dayKey, windows, loc)
		if err != nil {
			return result, err
		}

		candidates := make([]readyItem, 0, len(items)+len(habitStates))
		for _, it := range items {
			if !placed[it.item.Key()] {
				candidates = append(candidates, it)
			}
		}
		for _, h := range habitStates {
			if utils.IsDue(h.rule, dayKey, h.history(dayKey)) {
				candidates = append(candidates, h.occurrence(dayKey))
			}
		}
		rankItems(candidates)

		for _, c := range candidates {
			inst, ok := s.place(userID, dayKey, c, intervals, busy, notBefore, now, mode)
			if !ok {
				if c.habit != nil {
					key := c.habit.deferralKey(dayKey)
					if _, seen := habitDeferred[key]; !seen {
						habitDeferredOrder = append(habitDeferredOrder, key)
					}
					habitDeferred[key] = ItemOutcome{
						ID:         c.item.ID,
						SourceType: constants.SourceHabit,
						Name:       c.item.Name,
						DayKey:     dayKey,
						Reason:     "no compatible window with room on " + dayKey,
					}
				}
				continue
			}

			inserted, err := s.store.InsertInstance(ctx, inst)
			if err != nil {
				logger.Error("Failed to persist schedule instance", "user_id", userID, "horizon", horizon, "timezone", loc.String(), "source_type", inst.SourceType, "source_id", inst.SourceID, "error", err)
				return result, apperrors.Persistence("insert instance", err)
			}
			busy.add(inst.StartUTC, inst.EndUTC)
			placed[c.item.Key()] = true
			if c.habit != nil {
				c.habit.record(dayKey)
				delete(habitDeferred, c.habit.deferralKey(dayKey))
			}
			if !inserted {
				logger.Debug("Instance already present", "user_id", userID, "source_type", inst.SourceType, "source_id", inst.SourceID, "start_utc", inst.StartUTC)
				continue
			}
			result.Placed = append(result.Placed, inst)
		}
	}

	for _, it := range items {
		if placed[it.item.Key()] {
			continue
		}
		result.Deferred = append(result.Deferred, ItemOutcome{
			ID:         it.item.ID,
			SourceType: it.item.SourceType,
			Name:       it.item.Name,
			Reason:     fmt.Sprintf("no compatible window with room within %d day(s)", horizon),
		})
	}
	for _, key := range habitDeferredOrder {
		if outcome, ok := habitDeferred[key]; ok {
			result.Deferred = append(result.Deferred, outcome)
		}
	}

	logger.Info("Backlog pass finished",
		"user_id", userID,
		"mode", mode,
		"timezone", loc.String(),
		"horizon", horizon,
		"placed", len(result.Placed),
		"deferred", len(result.Deferred),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// place finds the earliest compatible window with enough contiguous free time.
func (s *Scheduler) place(userID, dayKey string, c readyItem, intervals []Interval, busy *occupancy, notBefore, now time.Time, mode constants.SchedulerMode) (models.ScheduleInstance, bool) {
	duration := placedMinutes(c.item.DurationMin, mode)
	length := time.Duration(duration) * time.Minute

	for _, iv := range intervals {
		windowEnergy := effectiveWindowEnergy(iv.Window.Energy, mode)
		if !EnergyFits(windowEnergy, c.item.Energy) {
			continue
		}
		start, ok := busy.fit(iv, notBefore, length)
		if !ok {
			continue
		}
		resolved := windowEnergy
		if resolved == "" {
			resolved = c.item.Energy
		}
		stamp := now.UTC().Truncate(time.Second)
		return models.ScheduleInstance{
			ID:             s.newID(),
			UserID:         userID,
			SourceType:     c.item.SourceType,
			SourceID:       c.item.ID,
			StartUTC:       start.UTC(),
			EndUTC:         start.Add(length).UTC(),
			DurationMin:    duration,
			Status:         constants.StatusScheduled,
			WeightSnapshot: float64(c.weight),
			EnergyResolved: string(resolved),
			Locked:         c.item.Locked,
			WindowID:       iv.Window.ID,
			DayKey:         dayKey,
			CreatedAt:      stamp,
			UpdatedAt:      stamp,
		}, true
	}
	return models.ScheduleInstance{}, false
}

func effectiveWindowEnergy(raw constants.EnergyLevel, mode constants.SchedulerMode) constants.EnergyLevel {
	e := constants.EnergyLevel(strings.ToUpper(strings.TrimSpace(string(raw))))
	if mode == constants.ModeRest && e != constants.EnergyNo {
		return constants.EnergyLow
	}
	return e
}

// placedMinutes is how long an item of the given minutes runs once placed.
func placedMinutes(minutes int, mode constants.SchedulerMode) int {
	if mode == constants.ModeRush {
		return rushDuration(minutes)
	}
	return minutes
}

func rushDuration(minutes int) int {
	d := int(math.Round(float64(minutes) * constants.RushDurationMultiplier))
	if d < 1 {
		return 1
	}
	return d
}

// rankItems orders by weight descending, then creation time, then key.
func rankItems(items []readyItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.weight != b.weight {
			return a.weight > b.weight
		}
		if !a.item.CreatedAt.Equal(b.item.CreatedAt) {
			return a.item.CreatedAt.Before(b.item.CreatedAt)
		}
		return a.item.Key() < b.item.Key()
	})
}

func sourceKey(t constants.SourceType, id string) string {
	return string(t) + ":" + id
}

// activeInstances indexes scheduled and completed instances by source. These
// hold their source out of the backlog; missed and canceled ones do not.
func activeInstances(existing []models.ScheduleInstance) (map[string]bool, map[string]int) {
	active := make(map[string]bool)
	minutes := make(map[string]int)
	for _, inst := range existing {
		switch inst.Status {
		case constants.StatusScheduled, constants.StatusCompleted, constants.StatusNone:
		default:
			continue
		}
		key := sourceKey(inst.SourceType, inst.SourceID)
		active[key] = true
		d := inst.DurationMin
		if d <= 0 {
			d = int(inst.EndUTC.Sub(inst.StartUTC) / time.Minute)
		}
		minutes[key] += d
	}
	return active, minutes
}

func parseTiers(energy constants.EnergyLevel, priority constants.PriorityLevel) (constants.EnergyLevel, constants.PriorityLevel, error) {
	e, err := ParseEnergy(string(energy))
	if err != nil {
		return "", "", err
	}
	p, err := ParsePriority(string(priority))
	if err != nil {
		return "", "", err
	}
	return e, p, nil
}

func skippedItem(id string, source constants.SourceType, name string, err error) ItemOutcome {
	return ItemOutcome{ID: id, SourceType: source, Name: name, Reason: err.Error()}
}

// collectItems builds the ready tasks and projects. A task is ready when it
// is not done, does not belong to a project, its dependency is done, and it
// has no scheduled or completed instance. A project is ready while it has
// allocatable minutes left over after its scheduled and completed instances.
// Instances record placed minutes, so in RUSH mode the project is covered
// once they reach its shortened length.
func collectItems(tasks []models.Task, projects []models.Project, existing []models.ScheduleInstance, mode constants.SchedulerMode) ([]readyItem, []ItemOutcome) {
	active, coveredMinutes := activeInstances(existing)
	var items []readyItem
	var skipped []ItemOutcome

	taskByID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
	}

	openMinutes := make(map[string]int)
	openCount := make(map[string]int)
	openEnergy := make(map[string]constants.EnergyLevel)

	for _, t := range tasks {
		if t.IsDone() {
			continue
		}
		if t.ProjectID != "" {
			openMinutes[t.ProjectID] += t.DurationMin
			openCount[t.ProjectID]++
			if e, err := ParseEnergy(string(t.Energy)); err == nil && EnergyIndex(e) > EnergyIndex(openEnergy[t.ProjectID]) {
				openEnergy[t.ProjectID] = e
			}
			continue
		}
		if t.DependsOnTaskID != "" {
			if dep, ok := taskByID[t.DependsOnTaskID]; ok && !dep.IsDone() {
				continue
			}
		}
		if active[sourceKey(constants.SourceTask, t.ID)] {
			continue
		}
		if t.DurationMin <= 0 {
			skipped = append(skipped, skippedItem(t.ID, constants.SourceTask, t.Name,
				apperrors.ItemLevel("task", "duration %d must be positive", t.DurationMin)))
			continue
		}
		energy, priority, err := parseTiers(t.Energy, t.Priority)
		if err != nil {
			skipped = append(skipped, skippedItem(t.ID, constants.SourceTask, t.Name, err))
			continue
		}
		items = append(items, readyItem{
			item: models.BacklogItem{
				ID:          t.ID,
				SourceType:  constants.SourceTask,
				Name:        t.Name,
				DurationMin: t.DurationMin,
				Energy:      energy,
				Priority:    priority,
				Stage:       t.Stage,
				GoalID:      t.GoalID,
				CreatedAt:   t.CreatedAt,
			},
			weight: Weight(priority, energy),
		})
	}

	for _, p := range projects {
		if p.IsDone() {
			continue
		}
		if p.DurationMin < 0 {
			skipped = append(skipped, skippedItem(p.ID, constants.SourceProject, p.Name,
				apperrors.ItemLevel("project", "duration %d must not be negative", p.DurationMin)))
			continue
		}
		allocatable := p.DurationMin
		if allocatable == 0 {
			allocatable = openMinutes[p.ID]
			if openCount[p.ID] == 0 {
				allocatable = constants.DefaultProjectDurationMin
			}
		}
		covered := coveredMinutes[sourceKey(constants.SourceProject, p.ID)]
		if covered >= placedMinutes(allocatable, mode) {
			continue
		}
		remaining := allocatable - covered
		energy, priority, err := parseTiers(p.Energy, p.Priority)
		if err != nil {
			skipped = append(skipped, skippedItem(p.ID, constants.SourceProject, p.Name, err))
			continue
		}
		if strings.TrimSpace(string(p.Energy)) == "" && openEnergy[p.ID] != "" {
			energy = openEnergy[p.ID]
		}
		items = append(items, readyItem{
			item: models.BacklogItem{
				ID:          p.ID,
				SourceType:  constants.SourceProject,
				Name:        p.Name,
				DurationMin: remaining,
				Energy:      energy,
				Priority:    priority,
				Stage:       p.Stage,
				GoalID:      p.GoalID,
				CreatedAt:   p.CreatedAt,
			},
			weight: Weight(priority, energy),
		})
	}
	return items, skipped
}

// collectHabits parses every habit's rule and replays its visible instances
// into the occurrence history.
func collectHabits(habits []models.Habit, existing []models.ScheduleInstance, loc *time.Location) ([]*habitState, []ItemOutcome) {
	var states []*habitState
	var skipped []ItemOutcome
	byID := make(map[string]*habitState, len(habits))

	for _, h := range habits {
		if h.DurationMin <= 0 {
			skipped = append(skipped, skippedItem(h.ID, constants.SourceHabit, h.Name,
				apperrors.ItemLevel("habit", "duration %d must be positive", h.DurationMin)))
			continue
		}
		energy, priority, err := parseTiers(h.Energy, h.Priority)
		if err != nil {
			skipped = append(skipped, skippedItem(h.ID, constants.SourceHabit, h.Name, err))
			continue
		}
		rule, err := utils.ParseRecurrence(h.Recurrence, h.RecurrenceDays)
		if err != nil {
			skipped = append(skipped, skippedItem(h.ID, constants.SourceHabit, h.Name, err))
			continue
		}
		state := &habitState{
			habit:          h,
			rule:           rule,
			energy:         energy,
			priority:       priority,
			occurrenceDays: make(map[string]bool),
		}
		if !h.CreatedAt.IsZero() {
			state.anchor = utils.DayKey(h.CreatedAt, loc)
		}
		if h.LastCompletedAt != nil && !h.LastCompletedAt.IsZero() {
			state.lastCompleted = utils.DayKey(*h.LastCompletedAt, loc)
		}
		states = append(states, state)
		byID[h.ID] = state
	}

	for _, inst := range existing {
		if inst.SourceType != constants.SourceHabit || !inst.Status.IsVisible() {
			continue
		}
		state, ok := byID[inst.SourceID]
		if !ok {
			continue
		}
		day := instanceDayKey(inst, loc)
		state.record(day)
		if inst.Status == constants.StatusCompleted && utils.CompareDayKeys(day, state.lastCompleted) > 0 {
			state.lastCompleted = day
		}
	}
	return states, skipped
}
