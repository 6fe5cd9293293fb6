package scheduler

import (
	"sort"
	"time"

	"github.com/julianstephens/timeblock/internal/models"
)

type timeBlock struct {
	start time.Time
	end   time.Time
}

// occupancy is the busy time of one user during a pass: every visible
// instance already stored plus everything placed so far.
type occupancy struct {
	busy []timeBlock
}

func newOccupancy(instances []models.ScheduleInstance) *occupancy {
	o := &occupancy{}
	for _, inst := range instances {
		if !inst.Status.IsVisible() || !inst.EndUTC.After(inst.StartUTC) {
			continue
		}
		o.add(inst.StartUTC, inst.EndUTC)
	}
	return o
}

func (o *occupancy) add(start, end time.Time) {
	o.busy = append(o.busy, timeBlock{start: start, end: end})
	sort.Slice(o.busy, func(i, j int) bool {
		return o.busy[i].start.Before(o.busy[j].start)
	})
}

// findFreeBlocks returns the parts of iv not covered by busy time, starting no
// earlier than notBefore.
func (o *occupancy) findFreeBlocks(iv Interval, notBefore time.Time) []timeBlock {
	current := iv.Start
	if notBefore.After(current) {
		current = notBefore
	}
	if !current.Before(iv.End) {
		return nil
	}

	var blocks []timeBlock
	for _, b := range o.busy {
		if !b.end.After(current) {
			continue
		}
		if !b.start.Before(iv.End) {
			break
		}
		if b.start.After(current) {
			blocks = append(blocks, timeBlock{start: current, end: b.start})
		}
		if b.end.After(current) {
			current = b.end
		}
		if !current.Before(iv.End) {
			return blocks
		}
	}
	if current.Before(iv.End) {
		blocks = append(blocks, timeBlock{start: current, end: iv.End})
	}
	return blocks
}

// fit returns the earliest start inside iv where d of contiguous free time begins.
func (o *occupancy) fit(iv Interval, notBefore time.Time, d time.Duration) (time.Time, bool) {
	for _, b := range o.findFreeBlocks(iv, notBefore) {
		if b.end.Sub(b.start) >= d {
			return b.start, true
		}
	}
	return time.Time{}, false
}

// ceilMinute rounds t up to the next whole minute.
func ceilMinute(t time.Time) time.Time {
	trunc := t.Truncate(time.Minute)
	if trunc.Equal(t) {
		return t
	}
	return trunc.Add(time.Minute)
}
