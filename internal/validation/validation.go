package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
	"github.com/julianstephens/timeblock/internal/models"
	"github.com/julianstephens/timeblock/internal/scheduler"
	"github.com/julianstephens/timeblock/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictOverlappingInstances ConflictType = "overlapping_instances"
	ConflictInvalidInstance      ConflictType = "invalid_instance"
	ConflictInvalidWindow        ConflictType = "invalid_window"
	ConflictOverlappingWindows   ConflictType = "overlapping_windows"
)

// Conflict represents a detected problem in stored schedule data
type Conflict struct {
	Type        ConflictType `json:"type"`
	Description string       `json:"description"`
	DayKey      string       `json:"dayKey,omitempty"`
	IDs         []string     `json:"ids"`
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict `json:"conflicts"`
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Validator audits persisted instances and day types.
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// ValidateInstances reports rows that break the placement rules: malformed
// rows, and visible instances whose intervals intersect. loc names the day
// each conflict falls on.
func (v *Validator) ValidateInstances(instances []models.ScheduleInstance, loc *time.Location) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	var visible []models.ScheduleInstance
	for _, inst := range instances {
		if msg := invalidInstance(inst); msg != "" {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidInstance,
				Description: fmt.Sprintf("Instance %s: %s", inst.ID, msg),
				DayKey:      dayKeyOf(inst, loc),
				IDs:         []string{inst.ID},
			})
			continue
		}
		if inst.Status.IsVisible() {
			visible = append(visible, inst)
		}
	}

	sort.Slice(visible, func(i, j int) bool {
		if !visible[i].StartUTC.Equal(visible[j].StartUTC) {
			return visible[i].StartUTC.Before(visible[j].StartUTC)
		}
		return visible[i].ID < visible[j].ID
	})

	// Sorted by start, so the inner loop stops at the first instance that
	// starts after a ends.
	for i := 0; i < len(visible); i++ {
		a := visible[i]
		for j := i + 1; j < len(visible); j++ {
			b := visible[j]
			if !b.StartUTC.Before(a.EndUTC) {
				break
			}
			result.Conflicts = append(result.Conflicts, Conflict{
				Type: ConflictOverlappingInstances,
				Description: fmt.Sprintf("%s: %s %s (%s-%s) overlaps %s %s (%s-%s)",
					dayKeyOf(a, loc),
					a.SourceType, a.ID, clock(a.StartUTC, loc), clock(a.EndUTC, loc),
					b.SourceType, b.ID, clock(b.StartUTC, loc), clock(b.EndUTC, loc)),
				DayKey: dayKeyOf(a, loc),
				IDs:    []string{a.ID, b.ID},
			})
		}
	}

	return result
}

func invalidInstance(inst models.ScheduleInstance) string {
	switch {
	case inst.StartUTC.IsZero() || inst.EndUTC.IsZero():
		return "missing start or end"
	case !inst.EndUTC.After(inst.StartUTC):
		return fmt.Sprintf("end %s is not after start %s", utils.FormatTimestamp(inst.EndUTC), utils.FormatTimestamp(inst.StartUTC))
	case inst.SourceID == "":
		return "missing source id"
	}
	switch inst.SourceType {
	case constants.SourceTask, constants.SourceProject, constants.SourceHabit:
	default:
		return fmt.Sprintf("unknown source type %q", inst.SourceType)
	}
	switch inst.Status {
	case constants.StatusNone, constants.StatusScheduled, constants.StatusCompleted, constants.StatusMissed, constants.StatusCanceled:
	default:
		return fmt.Sprintf("unknown status %q", inst.Status)
	}
	return ""
}

// ValidateDayType checks that every window parses and that the windows of a
// day type do not intersect each other once placed on the logical day.
func (v *Validator) ValidateDayType(dt models.DayType) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	type span struct {
		w             models.Window
		offset, width int
	}
	var spans []span
	for _, w := range dt.Windows {
		pl, err := scheduler.PlaceWindow(w, constants.DayStartHour, 1)
		if err != nil {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidWindow,
				Description: fmt.Sprintf("Day type %q: window %s: %v", dt.Name, windowName(w), err),
				IDs:         []string{w.ID},
			})
			continue
		}
		if w.Energy != "" {
			if _, err := scheduler.ParseEnergy(string(w.Energy)); err != nil {
				result.Conflicts = append(result.Conflicts, Conflict{
					Type:        ConflictInvalidWindow,
					Description: fmt.Sprintf("Day type %q: window %s: %v", dt.Name, windowName(w), err),
					IDs:         []string{w.ID},
				})
			}
		}
		spans = append(spans, span{w: w, offset: int(pl.Top), width: int(pl.Height)})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].offset < spans[j].offset })
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if cur.offset < prev.offset+prev.width {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type: ConflictOverlappingWindows,
				Description: fmt.Sprintf("Day type %q: window %s (%s-%s) overlaps %s (%s-%s)", dt.Name,
					windowName(prev.w), prev.w.StartLocal, prev.w.EndLocal,
					windowName(cur.w), cur.w.StartLocal, cur.w.EndLocal),
				IDs: []string{prev.w.ID, cur.w.ID},
			})
		}
	}

	return result
}

func windowName(w models.Window) string {
	if w.Label != "" {
		return fmt.Sprintf("%q", w.Label)
	}
	return w.ID
}

func dayKeyOf(inst models.ScheduleInstance, loc *time.Location) string {
	if inst.DayKey != "" {
		return inst.DayKey
	}
	if inst.StartUTC.IsZero() {
		return ""
	}
	return utils.DayKey(inst.StartUTC, loc)
}

func clock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(constants.TimeFormat)
}
