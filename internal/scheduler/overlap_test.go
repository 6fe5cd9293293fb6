package scheduler

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
	"github.com/julianstephens/timeblock/internal/models"
)

var overlapBase = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return overlapBase.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func instance(id string, start, end time.Time, weight float64) models.ScheduleInstance {
	return models.ScheduleInstance{
		ID:             id,
		SourceType:     constants.SourceTask,
		SourceID:       "src-" + id,
		StartUTC:       start,
		EndUTC:         end,
		Status:         constants.StatusScheduled,
		WeightSnapshot: weight,
	}
}

func keptIDs(r OverlapResult) []string {
	ids := make([]string, 0, len(r.Kept))
	for _, k := range r.Kept {
		ids = append(ids, k.ID)
	}
	return ids
}

func TestResolveOverlapsEarlierStartWins(t *testing.T) {
	a := instance("a", at(9, 0), at(10, 0), 5)
	b := instance("b", at(9, 30), at(10, 30), 8)

	got := ResolveOverlaps([]models.ScheduleInstance{b, a})
	if !reflect.DeepEqual(keptIDs(got), []string{"a"}) {
		t.Errorf("kept = %v, want [a]", keptIDs(got))
	}
	if !reflect.DeepEqual(got.DroppedIDs, []string{"b"}) {
		t.Errorf("dropped = %v, want [b]", got.DroppedIDs)
	}
}

func TestResolveOverlapsTieBreaks(t *testing.T) {
	tests := []struct {
		name string
		in   []models.ScheduleInstance
		want string
	}{
		{
			name: "locked first",
			in: []models.ScheduleInstance{
				instance("heavy", at(9, 0), at(10, 0), 50),
				func() models.ScheduleInstance {
					i := instance("locked", at(9, 0), at(10, 0), 1)
					i.Locked = true
					return i
				}(),
			},
			want: "locked",
		},
		{
			name: "habit before non-habit",
			in: []models.ScheduleInstance{
				instance("task", at(9, 0), at(10, 0), 50),
				func() models.ScheduleInstance {
					i := instance("habit", at(9, 0), at(10, 0), 1)
					i.SourceType = constants.SourceHabit
					return i
				}(),
			},
			want: "habit",
		},
		{
			name: "weight descending",
			in: []models.ScheduleInstance{
				instance("light", at(9, 0), at(10, 0), 10),
				instance("heavy", at(9, 0), at(9, 30), 20),
			},
			want: "heavy",
		},
		{
			name: "id lexicographic",
			in: []models.ScheduleInstance{
				instance("b", at(9, 0), at(10, 0), 10),
				instance("a", at(9, 0), at(10, 0), 10),
			},
			want: "a",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveOverlaps(tt.in)
			if ids := keptIDs(got); len(ids) != 1 || ids[0] != tt.want {
				t.Errorf("kept = %v, want [%s]", ids, tt.want)
			}
		})
	}
}

func TestResolveOverlapsMalformed(t *testing.T) {
	noEnd := instance("no-end", at(8, 0), time.Time{}, 1)
	noEnd.DurationMin = 30
	backwards := instance("backwards", at(12, 0), at(11, 0), 1)
	empty := instance("empty", at(13, 0), at(13, 0), 1)
	noStart := instance("no-start", time.Time{}, at(14, 0), 1)
	adjacent := instance("adjacent", at(8, 30), at(9, 0), 1)

	got := ResolveOverlaps([]models.ScheduleInstance{noEnd, backwards, empty, noStart, adjacent})
	if !reflect.DeepEqual(keptIDs(got), []string{"no-end", "adjacent"}) {
		t.Errorf("kept = %v", keptIDs(got))
	}
	if !got.Kept[0].EndUTC.Equal(at(8, 30)) {
		t.Errorf("end fallback = %v, want 08:30", got.Kept[0].EndUTC)
	}
	if len(got.DroppedIDs) != 3 {
		t.Errorf("dropped = %v, want 3 malformed", got.DroppedIDs)
	}
}

// randomInstances generates candidate sets for the property test.
type randomInstances []models.ScheduleInstance

func (randomInstances) Generate(r *rand.Rand, size int) reflect.Value {
	n := r.Intn(size + 1)
	out := make(randomInstances, n)
	for i := range out {
		start := overlapBase.Add(time.Duration(r.Intn(24*60)) * time.Minute)
		length := time.Duration(r.Intn(180)-10) * time.Minute
		inst := instance(fmt.Sprintf("i%03d", i), start, start.Add(length), float64(r.Intn(60)))
		inst.Locked = r.Intn(5) == 0
		if r.Intn(3) == 0 {
			inst.SourceType = constants.SourceHabit
		}
		out[i] = inst
	}
	return reflect.ValueOf(out)
}

func TestResolveOverlapsKeepsNoIntersections(t *testing.T) {
	f := func(in randomInstances) bool {
		got := ResolveOverlaps(in)
		for i := range got.Kept {
			for j := i + 1; j < len(got.Kept); j++ {
				if got.Kept[i].Overlaps(got.Kept[j]) {
					return false
				}
			}
		}
		return len(got.Kept)+len(got.DroppedIDs) == len(in)
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}

func TestResolveOverlapsDeterministic(t *testing.T) {
	f := func(in randomInstances) bool {
		reversed := make([]models.ScheduleInstance, len(in))
		for i := range in {
			reversed[len(in)-1-i] = in[i]
		}
		return reflect.DeepEqual(keptIDs(ResolveOverlaps(in)), keptIDs(ResolveOverlaps(reversed)))
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
