package scheduler

import (
	"context"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/logger"
	"github.com/julianstephens/timeblock/internal/models"
	"github.com/julianstephens/timeblock/internal/utils"
)

// Event is a visible instance joined with its source's display metadata.
type Event struct {
	models.ScheduleInstance
	Name     string                  `json:"name"`
	Energy   constants.EnergyLevel   `json:"energy"`
	Priority constants.PriorityLevel `json:"priority"`
}

// EventsDataset is the calendar view over a bounded horizon.
type EventsDataset struct {
	TimeZone      string    `json:"timeZone"`
	LookaheadDays int       `json:"lookaheadDays"`
	RangeStart    time.Time `json:"rangeStart"`
	RangeEnd      time.Time `json:"rangeEnd"`
	Events        []Event   `json:"events"`
	DroppedIDs    []string  `json:"droppedIds"`
	OrphanIDs     []string  `json:"orphanIds"`
}

type sourceMeta struct {
	name     string
	energy   constants.EnergyLevel
	priority constants.PriorityLevel
}

// ComposeEvents returns the visible instances from the start of now's logical
// day through lookaheadDays days, made overlap-free and joined with their
// sources. Instances whose source no longer exists are left out and logged.
func (s *Scheduler) ComposeEvents(ctx context.Context, userID string, now time.Time, lookaheadDays int, timeZone *string, utcOffsetMinutes *int) (EventsDataset, error) {
	ds := EventsDataset{Events: []Event{}, DroppedIDs: []string{}, OrphanIDs: []string{}}
	loc, err := s.ResolveLocation(ctx, userID, timeZone, utcOffsetMinutes)
	if err != nil {
		return ds, err
	}
	days := ClampLookahead(lookaheadDays)
	today := utils.DayKey(now, loc)
	start, _, err := utils.LogicalDayBounds(today, loc)
	if err != nil {
		return ds, err
	}
	lastDay, err := utils.AddDays(today, days-1)
	if err != nil {
		return ds, err
	}
	_, end, err := utils.LogicalDayBounds(lastDay, loc)
	if err != nil {
		return ds, err
	}
	ds.TimeZone = loc.String()
	ds.LookaheadDays = days
	ds.RangeStart = start
	ds.RangeEnd = end

	instances, err := s.store.ListInstances(ctx, userID, start, end)
	if err != nil {
		return ds, apperrors.Persistence("list instances", err)
	}
	meta, err := s.sourceMetadata(ctx, userID)
	if err != nil {
		return ds, err
	}

	visible := make([]models.ScheduleInstance, 0, len(instances))
	for _, inst := range instances {
		if !inst.Status.IsVisible() {
			continue
		}
		if _, ok := meta[sourceKey(inst.SourceType, inst.SourceID)]; !ok {
			logger.Warn("Skipping orphaned instance", "user_id", userID, "instance_id", inst.ID, "source_type", inst.SourceType, "source_id", inst.SourceID)
			ds.OrphanIDs = append(ds.OrphanIDs, inst.ID)
			continue
		}
		visible = append(visible, inst)
	}

	resolved := ResolveOverlaps(visible)
	ds.DroppedIDs = append(ds.DroppedIDs, resolved.DroppedIDs...)
	for _, inst := range resolved.Kept {
		m := meta[sourceKey(inst.SourceType, inst.SourceID)]
		if inst.DayKey == "" {
			inst.DayKey = utils.DayKey(inst.StartUTC, loc)
		}
		ds.Events = append(ds.Events, Event{ScheduleInstance: inst, Name: m.name, Energy: m.energy, Priority: m.priority})
	}
	return ds, nil
}

func (s *Scheduler) sourceMetadata(ctx context.Context, userID string) (map[string]sourceMeta, error) {
	meta := make(map[string]sourceMeta)
	tasks, err := s.store.GetTasks(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence("get tasks", err)
	}
	for _, t := range tasks {
		meta[sourceKey(constants.SourceTask, t.ID)] = sourceMeta{name: t.Name, energy: t.Energy, priority: t.Priority}
	}
	projects, err := s.store.GetProjects(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence("get projects", err)
	}
	for _, p := range projects {
		meta[sourceKey(constants.SourceProject, p.ID)] = sourceMeta{name: p.Name, energy: p.Energy, priority: p.Priority}
	}
	habits, err := s.store.GetHabits(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence("get habits", err)
	}
	for _, h := range habits {
		meta[sourceKey(constants.SourceHabit, h.ID)] = sourceMeta{name: h.Name, energy: h.Energy, priority: h.Priority}
	}
	return meta, nil
}
