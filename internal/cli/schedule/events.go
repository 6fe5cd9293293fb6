package schedule

import (
	"fmt"

	"github.com/julianstephens/timeblock/internal/cli"
	"github.com/julianstephens/timeblock/internal/utils"
)

type EventsCmd struct {
	UserFlag
	Lookahead int    `help:"Days to show (1-14)." default:"7"`
	TimeZone  string `help:"IANA zone. Defaults to the profile zone."`
}

func (c *EventsCmd) Run(ctx *cli.Context) error {
	var tz *string
	if c.TimeZone != "" {
		tz = &c.TimeZone
	}
	bg, stop := ctx.SignalContext()
	defer stop()
	ds, err := ctx.Scheduler.ComposeEvents(bg, c.User, ctx.Now(), c.Lookahead, tz, nil)
	if err != nil {
		return err
	}
	loc, err := utils.LoadLocation(ds.TimeZone)
	if err != nil {
		return err
	}

	cli.Header(ctx.Out, "Schedule for %s, next %d day(s) (%s)", c.User, ds.LookaheadDays, ds.TimeZone)
	if len(ds.Events) == 0 {
		fmt.Fprintln(ctx.Out, cli.DimStyle.Render("Nothing scheduled."))
	}
	day := ""
	for _, ev := range ds.Events {
		if ev.DayKey != day {
			day = ev.DayKey
			fmt.Fprintf(ctx.Out, "\n%s\n", day)
		}
		status := string(ev.Status)
		if status == "" {
			status = "scheduled"
		}
		cli.Row(ctx.Out, cli.Span(ev.StartUTC, ev.EndUTC, loc), ev.Name, fmt.Sprintf("%s, %s", ev.SourceType, status))
	}
	if n := len(ds.DroppedIDs); n > 0 {
		fmt.Fprintf(ctx.Out, "\n%s %d overlapping instance(s) hidden; run 'timeblock validate'\n", cli.WarnStyle.Render("!"), n)
	}
	return nil
}
