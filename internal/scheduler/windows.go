package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/models"
	"github.com/julianstephens/timeblock/internal/utils"
)

// ErrNegativePlacement is returned when a window's placement arithmetic goes
// negative, which valid windows never do.
var ErrNegativePlacement = errors.New("window placement is negative")

// DayTypeSource is the read side of day type storage.
type DayTypeSource interface {
	GetDayTypeAssignment(ctx context.Context, userID, dateKey string) (models.DayTypeAssignment, error)
	GetDayType(ctx context.Context, userID, id string) (models.DayType, error)
	GetDefaultDayType(ctx context.Context, userID string) (models.DayType, error)
}

// DayTypeResolver finds the day type for a logical day. ok is false when the
// resolver has no opinion and the next one should be asked.
type DayTypeResolver interface {
	Resolve(ctx context.Context, userID, dayKey string) (dt models.DayType, ok bool, err error)
}

// AssignmentResolver picks the day type explicitly assigned to a date.
type AssignmentResolver struct {
	Source DayTypeSource
}

func (r AssignmentResolver) Resolve(ctx context.Context, userID, dayKey string) (models.DayType, bool, error) {
	a, err := r.Source.GetDayTypeAssignment(ctx, userID, dayKey)
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.DayType{}, false, nil
	}
	if err != nil {
		return models.DayType{}, false, err
	}
	dt, err := r.Source.GetDayType(ctx, userID, a.DayTypeID)
	if errors.Is(err, apperrors.ErrNotFound) {
		// Assignment points at a deleted day type.
		return models.DayType{}, false, nil
	}
	if err != nil {
		return models.DayType{}, false, err
	}
	return dt, true, nil
}

// DefaultResolver picks the user's default day type.
type DefaultResolver struct {
	Source DayTypeSource
}

func (r DefaultResolver) Resolve(ctx context.Context, userID, _ string) (models.DayType, bool, error) {
	dt, err := r.Source.GetDefaultDayType(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.DayType{}, false, nil
	}
	if err != nil {
		return models.DayType{}, false, err
	}
	return dt, true, nil
}

// ResolverChain asks each resolver in order and returns the first answer.
type ResolverChain []DayTypeResolver

func (c ResolverChain) Resolve(ctx context.Context, userID, dayKey string) (models.DayType, bool, error) {
	for _, r := range c {
		dt, ok, err := r.Resolve(ctx, userID, dayKey)
		if err != nil || ok {
			return dt, ok, err
		}
	}
	return models.DayType{}, false, nil
}

// NewResolverChain builds the standard assignment-then-default lookup.
func NewResolverChain(source DayTypeSource) ResolverChain {
	return ResolverChain{AssignmentResolver{Source: source}, DefaultResolver{Source: source}}
}

// windowSpan is a window in minutes after local midnight of the day it starts.
// end may exceed MinutesPerDay for windows that cross midnight.
type windowSpan struct {
	start int
	end   int
}

func spanOf(w models.Window) (windowSpan, error) {
	start, err := utils.ParseClock(w.StartLocal)
	if err != nil {
		return windowSpan{}, err
	}
	end, err := utils.ParseClock(w.EndLocal)
	if err != nil {
		return windowSpan{}, err
	}
	if w.FromPrevDay {
		return windowSpan{start: 0, end: end}, nil
	}
	if end <= start {
		end += constants.MinutesPerDay
	}
	return windowSpan{start: start, end: end}, nil
}

func crossesMidnight(w models.Window) bool {
	s, err := spanOf(w)
	return err == nil && !w.FromPrevDay && s.end > constants.MinutesPerDay
}

// WindowsForDate returns the windows of a logical day ordered by where they
// sit in the day. The previous day's midnight-crossing windows are included
// as FromPrevDay tails when they run past the day start and do not collide
// with one of today's windows.
func WindowsForDate(ctx context.Context, lookup DayTypeResolver, userID, dayKey string) ([]models.Window, error) {
	if _, err := utils.ParseDayKey(dayKey); err != nil {
		return nil, err
	}
	prevKey, _ := utils.AddDays(dayKey, -1)

	today, ok, err := lookup.Resolve(ctx, userID, dayKey)
	if err != nil {
		return nil, apperrors.Persistence("resolve day type", err)
	}
	var windows []models.Window
	if ok {
		windows = append(windows, today.Windows...)
	}

	yesterday, ok, err := lookup.Resolve(ctx, userID, prevKey)
	if err != nil {
		return nil, apperrors.Persistence("resolve day type", err)
	}
	if ok {
		dayStart := constants.DayStartHour * 60
		for _, w := range yesterday.Windows {
			if !crossesMidnight(w) {
				continue
			}
			tail := w
			tail.FromPrevDay = true
			s, err := spanOf(tail)
			if err != nil || s.end <= dayStart || overlapsAny(s, today.Windows) {
				continue
			}
			windows = append(windows, tail)
		}
	}

	type ordered struct {
		w      models.Window
		offset int
	}
	list := make([]ordered, 0, len(windows))
	for _, w := range windows {
		p, err := PlaceWindow(w, constants.DayStartHour, 1)
		if err != nil {
			return nil, apperrors.Validation("windows for date", "window %s (%s-%s): %v", w.ID, w.StartLocal, w.EndLocal, err)
		}
		list = append(list, ordered{w: w, offset: int(p.Top)})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].offset != list[j].offset {
			return list[i].offset < list[j].offset
		}
		return list[i].w.ID < list[j].w.ID
	})

	out := make([]models.Window, len(list))
	for i, o := range list {
		out[i] = o.w
	}
	return out, nil
}

func overlapsAny(tail windowSpan, today []models.Window) bool {
	for _, w := range today {
		s, err := spanOf(w)
		if err != nil {
			continue
		}
		if s.start < tail.end && tail.start < s.end {
			return true
		}
	}
	return false
}

// Placement is where a window is drawn on a day column.
type Placement struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// PlaceWindow computes a window's offset and span from the day start, scaled
// by pxPerMin. It shares windowMinutes with ResolveIntervals.
func PlaceWindow(w models.Window, dayStartHour int, pxPerMin float64) (Placement, error) {
	offset, span, err := windowMinutes(w, dayStartHour)
	if err != nil {
		return Placement{}, err
	}
	return Placement{Top: float64(offset) * pxPerMin, Height: float64(span) * pxPerMin}, nil
}

// windowMinutes returns a window's offset from the day start and its length,
// both in minutes, within a day that begins at dayStartHour.
func windowMinutes(w models.Window, dayStartHour int) (offset, span int, err error) {
	start, err := utils.ParseClock(w.StartLocal)
	if err != nil {
		return 0, 0, err
	}
	end, err := utils.ParseClock(w.EndLocal)
	if err != nil {
		return 0, 0, err
	}
	dayStart := dayStartHour * 60

	switch {
	case w.FromPrevDay:
		offset, span = 0, end-dayStart
	case end <= start && start < dayStart:
		// Opens before the day start and wraps: clipped to the day start.
		offset, span = 0, end+constants.MinutesPerDay-dayStart
	case end <= start:
		offset, span = start-dayStart, constants.MinutesPerDay-start
	case end <= dayStart:
		// Entirely in the small hours, so it sits at the end of the logical day.
		offset, span = start-dayStart+constants.MinutesPerDay, end-start
	case start < dayStart:
		offset, span = 0, end-dayStart
	default:
		offset, span = start-dayStart, end-start
	}

	if offset < 0 || span < 0 {
		return 0, 0, fmt.Errorf("%w: %s-%s offset %d span %d", ErrNegativePlacement, w.StartLocal, w.EndLocal, offset, span)
	}
	return offset, span, nil
}

// Interval is a window resolved to absolute time on one logical day.
type Interval struct {
	Window models.Window
	Start  time.Time
	End    time.Time
}

// Minutes is the interval's length in whole minutes.
func (iv Interval) Minutes() int {
	return int(iv.End.Sub(iv.Start) / time.Minute)
}

// ResolveIntervals converts a logical day's windows into UTC intervals, each
// clipped to the logical day. Empty intervals are dropped.
func ResolveIntervals(dayKey string, windows []models.Window, loc *time.Location) ([]Interval, error) {
	dayStartUTC, dayEndUTC, err := utils.LogicalDayBounds(dayKey, loc)
	if err != nil {
		return nil, err
	}

	out := make([]Interval, 0, len(windows))
	for _, w := range windows {
		startMin, err := utils.ParseClock(w.StartLocal)
		if err != nil {
			return nil, err
		}
		endMin, err := utils.ParseClock(w.EndLocal)
		if err != nil {
			return nil, err
		}

		// Minutes relative to local midnight of dayKey's date.
		dayStart := constants.DayStartHour * 60
		switch {
		case w.FromPrevDay:
			startMin = dayStart
		case endMin <= startMin:
			endMin += constants.MinutesPerDay
		case endMin <= dayStart:
			startMin += constants.MinutesPerDay
			endMin += constants.MinutesPerDay
		}

		start, err := utils.AtLocalMinute(dayKey, startMin, loc)
		if err != nil {
			return nil, err
		}
		end, err := utils.AtLocalMinute(dayKey, endMin, loc)
		if err != nil {
			return nil, err
		}
		if start.Before(dayStartUTC) {
			start = dayStartUTC
		}
		if end.After(dayEndUTC) {
			end = dayEndUTC
		}
		if !end.After(start) {
			continue
		}
		out = append(out, Interval{Window: w, Start: start, End: end})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}
