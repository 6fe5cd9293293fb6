package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/timeblock/internal/cli"
	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/models"
	"github.com/julianstephens/timeblock/internal/utils"
	"github.com/julianstephens/timeblock/internal/validation"
)

// ValidateCmd audits stored instances and the day types of the coming days.
type ValidateCmd struct {
	UserFlag
}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	bg, stop := ctx.SignalContext()
	defer stop()
	loc, err := ctx.Scheduler.ResolveLocation(bg, c.User, nil, nil)
	if err != nil {
		return err
	}

	instances, err := ctx.Store.ListInstances(bg, c.User, time.Time{}, time.Time{})
	if err != nil {
		return apperrors.Persistence("list instances", err)
	}
	v := validation.New()
	result := v.ValidateInstances(instances, loc)

	dayTypes, err := c.upcomingDayTypes(bg, ctx, loc)
	if err != nil {
		return err
	}
	for _, dt := range dayTypes {
		result.Conflicts = append(result.Conflicts, v.ValidateDayType(dt).Conflicts...)
	}

	if !result.HasConflicts() {
		fmt.Fprintf(ctx.Out, "%s %s\n", cli.OKStyle.Render("✓"), result.FormatReport())
		return nil
	}
	fmt.Fprint(ctx.Out, cli.ErrStyle.Render(result.FormatReport()))
	fmt.Fprintln(ctx.Out)
	return fmt.Errorf("%d conflict(s) found", len(result.Conflicts))
}

// upcomingDayTypes returns the default day type and every day type assigned
// within the lookahead limit, each once.
func (c *ValidateCmd) upcomingDayTypes(bg context.Context, ctx *cli.Context, loc *time.Location) ([]models.DayType, error) {
	seen := map[string]bool{}
	var out []models.DayType

	def, err := ctx.Store.GetDefaultDayType(bg, c.User)
	switch {
	case err == nil:
		seen[def.ID] = true
		out = append(out, def)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, apperrors.Persistence("get default day type", err)
	}

	today := utils.DayKey(ctx.Now(), loc)
	for i := 0; i < constants.MaxScheduleLookaheadDays; i++ {
		dayKey, err := utils.AddDays(today, i)
		if err != nil {
			return nil, err
		}
		a, err := ctx.Store.GetDayTypeAssignment(bg, c.User, dayKey)
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperrors.Persistence("get day type assignment", err)
		}
		if seen[a.DayTypeID] {
			continue
		}
		dt, err := ctx.Store.GetDayType(bg, c.User, a.DayTypeID)
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperrors.Persistence("get day type", err)
		}
		seen[dt.ID] = true
		out = append(out, dt)
	}
	return out, nil
}
