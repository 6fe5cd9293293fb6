package scheduler

import (
	"sort"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
	"github.com/julianstephens/timeblock/internal/models"
)

// OverlapResult is the outcome of ResolveOverlaps. Kept is ordered by start.
type OverlapResult struct {
	Kept       []models.ScheduleInstance
	DroppedIDs []string
}

type overlapCandidate struct {
	inst  models.ScheduleInstance
	start time.Time
	end   time.Time
	habit bool
}

// ResolveOverlaps keeps a subset of instances with no two intervals
// intersecting. Candidates are ordered by start, then locked first, then
// habits first, then weight descending, then id, and swept once: each is kept
// only if it starts at or after the end of the last kept instance. An earlier
// instance therefore wins over a later, heavier one.
func ResolveOverlaps(instances []models.ScheduleInstance) OverlapResult {
	var result OverlapResult
	candidates := make([]overlapCandidate, 0, len(instances))

	for _, inst := range instances {
		if inst.StartUTC.IsZero() {
			result.DroppedIDs = append(result.DroppedIDs, inst.ID)
			continue
		}
		end := inst.EndUTC
		if end.IsZero() && inst.DurationMin > 0 {
			end = inst.StartUTC.Add(time.Duration(inst.DurationMin) * time.Minute)
		}
		if !end.After(inst.StartUTC) {
			result.DroppedIDs = append(result.DroppedIDs, inst.ID)
			continue
		}
		inst.EndUTC = end
		candidates = append(candidates, overlapCandidate{
			inst:  inst,
			start: inst.StartUTC,
			end:   end,
			habit: inst.SourceType == constants.SourceHabit,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.start.Equal(b.start) {
			return a.start.Before(b.start)
		}
		if a.inst.Locked != b.inst.Locked {
			return a.inst.Locked
		}
		if a.habit != b.habit {
			return a.habit
		}
		if a.inst.WeightSnapshot != b.inst.WeightSnapshot {
			return a.inst.WeightSnapshot > b.inst.WeightSnapshot
		}
		return a.inst.ID < b.inst.ID
	})

	var lastEnd time.Time
	for _, c := range candidates {
		if len(result.Kept) > 0 && c.start.Before(lastEnd) {
			result.DroppedIDs = append(result.DroppedIDs, c.inst.ID)
			continue
		}
		result.Kept = append(result.Kept, c.inst)
		lastEnd = c.end
	}
	return result
}
