package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/julianstephens/timeblock/internal/api"
	"github.com/julianstephens/timeblock/internal/cli"
	"github.com/julianstephens/timeblock/internal/constants"
	"github.com/julianstephens/timeblock/internal/runner"
	"github.com/julianstephens/timeblock/internal/scheduler"
	"github.com/julianstephens/timeblock/internal/utils"
)

// RunSchedulerCmd runs missed reconciliation and a backlog pass.
type RunSchedulerCmd struct {
	UserID           string `arg:"" optional:"" help:"User to schedule. Omit with --all."`
	WriteThroughDays int    `arg:"" optional:"" help:"Days to look ahead (1-14)."`
	Mode             string `help:"REGULAR, RUSH or REST."`
	TimeZone         string `help:"IANA zone for this pass. Defaults to the profile zone."`
	All              bool   `help:"Run a pass for every user."`
	Concurrency      int    `help:"Parallel passes with --all. Defaults to scheduler.concurrency."`
	Pretty           bool   `help:"Print a readable summary instead of JSON."`
}

func (c *RunSchedulerCmd) options(ctx *cli.Context) scheduler.Options {
	opts := ctx.Options()
	if c.WriteThroughDays > 0 {
		opts.WriteThroughDays = c.WriteThroughDays
	}
	if c.Mode != "" {
		opts.Mode = constants.SchedulerMode(c.Mode)
	}
	if c.TimeZone != "" {
		tz := c.TimeZone
		opts.TimeZone = &tz
	}
	return opts
}

func (c *RunSchedulerCmd) Run(ctx *cli.Context) error {
	if c.WriteThroughDays < 0 || c.WriteThroughDays > constants.MaxScheduleLookaheadDays {
		return fmt.Errorf("writeThroughDays must be between 1 and %d", constants.MaxScheduleLookaheadDays)
	}
	opts := c.options(ctx)
	sigCtx, stop := ctx.SignalContext()
	defer stop()

	if c.All {
		if c.UserID != "" {
			return errors.New("pass either a user id or --all, not both")
		}
		concurrency := c.Concurrency
		if concurrency <= 0 && ctx.Config != nil {
			concurrency = ctx.Config.Scheduler.Concurrency
		}
		res, err := ctx.Runner.RunAll(sigCtx, runner.TriggerCLI, concurrency, opts)
		if err != nil {
			return err
		}
		if c.Pretty {
			renderBatch(ctx, res)
		} else if err := writeJSON(ctx.Out, res); err != nil {
			return err
		}
		if len(res.Failed) > 0 {
			return fmt.Errorf("%d user(s) failed", len(res.Failed))
		}
		return nil
	}

	if c.UserID == "" {
		return errors.New("a user id is required (or pass --all)")
	}
	res, err := ctx.Runner.Pass(sigCtx, runner.TriggerCLI, c.UserID, opts)
	if err != nil {
		return err
	}
	if c.Pretty {
		renderPass(ctx, res)
		return nil
	}
	return writeJSON(ctx.Out, api.NewRunResponse(res))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderPass(ctx *cli.Context, res runner.PassResult) {
	loc, err := utils.LoadLocation(res.Backlog.TimeZone)
	if err != nil {
		loc = time.UTC
	}

	cli.Header(ctx.Out, "Scheduling pass for %s (%s, %d days)", res.UserID, res.Backlog.TimeZone, res.Backlog.HorizonDays)
	if n := len(res.Missed.MarkedMissedIDs); n > 0 {
		fmt.Fprintf(ctx.Out, "%s %d instance(s) marked missed, %d source(s) back in the backlog\n",
			cli.WarnStyle.Render("!"), n, len(res.Missed.RequeuedSourceIDs))
	}

	fmt.Fprintf(ctx.Out, "\nPlaced (%d)\n", len(res.Backlog.Placed))
	for _, inst := range res.Backlog.Placed {
		cli.Row(ctx.Out, cli.Span(inst.StartUTC, inst.EndUTC, loc),
			string(inst.SourceType)+" "+inst.SourceID,
			fmt.Sprintf("%s, weight %.0f", inst.DayKey, inst.WeightSnapshot))
	}
	if len(res.Backlog.Deferred) > 0 {
		fmt.Fprintf(ctx.Out, "\nDeferred (%d)\n", len(res.Backlog.Deferred))
		for _, d := range res.Backlog.Deferred {
			cli.Row(ctx.Out, d.DayKey, outcomeName(d), d.Reason)
		}
	}
	if len(res.Backlog.Skipped) > 0 {
		fmt.Fprintf(ctx.Out, "\nSkipped (%d)\n", len(res.Backlog.Skipped))
		for _, s := range res.Backlog.Skipped {
			cli.Row(ctx.Out, "", outcomeName(s), s.Reason)
		}
	}
}

func outcomeName(o scheduler.ItemOutcome) string {
	if o.Name != "" {
		return o.Name
	}
	return string(o.SourceType) + " " + o.ID
}

func renderBatch(ctx *cli.Context, res runner.BatchResult) {
	cli.Header(ctx.Out, "Batch pass")
	fmt.Fprintf(ctx.Out, "%s %d succeeded\n", cli.OKStyle.Render("✓"), len(res.Succeeded))
	if len(res.Contended) > 0 {
		fmt.Fprintf(ctx.Out, "%s %d already running: %v\n", cli.WarnStyle.Render("!"), len(res.Contended), res.Contended)
	}
	users := make([]string, 0, len(res.Failed))
	for u := range res.Failed {
		users = append(users, u)
	}
	sort.Strings(users)
	for _, u := range users {
		fmt.Fprintf(ctx.Out, "%s %s: %s\n", cli.ErrStyle.Render("✗"), u, res.Failed[u])
	}
}
