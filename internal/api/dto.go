package api

import (
	"github.com/julianstephens/timeblock/internal/constants"
	"github.com/julianstephens/timeblock/internal/models"
	"github.com/julianstephens/timeblock/internal/runner"
	"github.com/julianstephens/timeblock/internal/scheduler"
)

// RunRequest is the optional body of POST /scheduler/run.
type RunRequest struct {
	Mode             string  `json:"mode,omitempty"`
	WriteThroughDays *int    `json:"writeThroughDays,omitempty"`
	TimeZone         *string `json:"timeZone,omitempty"`
	UTCOffsetMinutes *int    `json:"utcOffsetMinutes,omitempty"`
}

func (req RunRequest) options(defaults scheduler.Options) scheduler.Options {
	opts := defaults
	if req.Mode != "" {
		opts.Mode = constants.SchedulerMode(req.Mode)
	}
	if req.WriteThroughDays != nil {
		opts.WriteThroughDays = *req.WriteThroughDays
	}
	if req.TimeZone != nil {
		opts.TimeZone = req.TimeZone
	}
	if req.UTCOffsetMinutes != nil {
		opts.UTCOffsetMinutes = req.UTCOffsetMinutes
	}
	return opts
}

// RunResponse summarizes a pass.
type RunResponse struct {
	Placed            []models.ScheduleInstance `json:"placed"`
	Deferred          []scheduler.ItemOutcome   `json:"deferred"`
	Skipped           []scheduler.ItemOutcome   `json:"skipped"`
	MarkedMissed      []string                  `json:"markedMissed"`
	RequeuedSourceIDs []string                  `json:"requeuedSourceIds"`
	TimeZone          string                    `json:"timeZone"`
	HorizonDays       int                       `json:"horizonDays"`
}

// NewRunResponse flattens a pass result into the wire summary.
func NewRunResponse(res runner.PassResult) RunResponse {
	return RunResponse{
		Placed:            res.Backlog.Placed,
		Deferred:          res.Backlog.Deferred,
		Skipped:           res.Backlog.Skipped,
		MarkedMissed:      res.Missed.MarkedMissedIDs,
		RequeuedSourceIDs: res.Missed.RequeuedSourceIDs,
		TimeZone:          res.Backlog.TimeZone,
		HorizonDays:       res.Backlog.HorizonDays,
	}
}

// WindowResponse is a window plus where it sits in the day column, in
// minutes from the logical day start.
type WindowResponse struct {
	models.Window
	OffsetMin int `json:"offsetMin"`
	SpanMin   int `json:"spanMin"`
}

type WindowsResponse struct {
	DayKey   string           `json:"dayKey"`
	TimeZone string           `json:"timeZone"`
	Windows  []WindowResponse `json:"windows"`
}
