package schedule

import (
	"fmt"

	"github.com/julianstephens/timeblock/internal/cli"
	"github.com/julianstephens/timeblock/internal/constants"
	"github.com/julianstephens/timeblock/internal/scheduler"
	"github.com/julianstephens/timeblock/internal/utils"
)

// UserFlag selects the user a read command looks at.
type UserFlag struct {
	User string `help:"User id." env:"TIMEBLOCK_USER" required:""`
}

type WindowsCmd struct {
	UserFlag
	DayKey   string `arg:"" optional:"" help:"Logical day (YYYY-MM-DD). Defaults to today."`
	TimeZone string `help:"IANA zone used to pick today. Defaults to the profile zone."`
}

func (c *WindowsCmd) Run(ctx *cli.Context) error {
	bg, stop := ctx.SignalContext()
	defer stop()
	var tz *string
	if c.TimeZone != "" {
		tz = &c.TimeZone
	}
	loc, err := ctx.Scheduler.ResolveLocation(bg, c.User, tz, nil)
	if err != nil {
		return err
	}
	dayKey := c.DayKey
	if dayKey == "" {
		dayKey = utils.DayKey(ctx.Now(), loc)
	}

	windows, err := ctx.Scheduler.Windows(bg, c.User, dayKey)
	if err != nil {
		return err
	}

	cli.Header(ctx.Out, "Windows for %s", dayKey)
	if len(windows) == 0 {
		fmt.Fprintln(ctx.Out, cli.DimStyle.Render("No windows. Assign a day type or set a default one."))
		return nil
	}
	for _, w := range windows {
		pl, err := scheduler.PlaceWindow(w, constants.DayStartHour, 1)
		if err != nil {
			return err
		}
		label := w.Label
		if label == "" {
			label = w.ID
		}
		detail := fmt.Sprintf("%d min", int(pl.Height))
		if w.Energy != "" {
			detail += ", " + string(w.Energy)
		}
		if w.FromPrevDay {
			detail += ", from previous day"
		}
		cli.Row(ctx.Out, w.StartLocal+"-"+w.EndLocal, label, detail)
	}
	return nil
}
