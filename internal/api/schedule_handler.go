package api

import (
	"net/http"
	"strconv"

	"github.com/julianstephens/timeblock/internal/constants"
	"github.com/julianstephens/timeblock/internal/scheduler"
	"github.com/julianstephens/timeblock/internal/utils"
)

// defaultLookaheadDays is the events horizon when the caller gives none.
const defaultLookaheadDays = 7

// GetWindows returns the windows of one logical day.
// GET /windows?dayKey=YYYY-MM-DD&timeZone=<IANA>
func (h *Handler) GetWindows(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)
	q := r.URL.Query()

	tz, offset, ok := zoneParams(w, r)
	if !ok {
		return
	}
	loc, err := h.views.ResolveLocation(r.Context(), userID, tz, offset)
	if HandleError(w, err, "user_id", userID) {
		return
	}

	dayKey := q.Get("dayKey")
	if dayKey == "" {
		dayKey = utils.DayKey(h.now(), loc)
	} else if _, err := utils.ParseDayKey(dayKey); err != nil {
		BadRequest(w, "dayKey must be YYYY-MM-DD")
		return
	}

	windows, err := h.views.Windows(r.Context(), userID, dayKey)
	if HandleError(w, err, "user_id", userID, "day_key", dayKey) {
		return
	}

	resp := WindowsResponse{DayKey: dayKey, TimeZone: loc.String(), Windows: make([]WindowResponse, 0, len(windows))}
	for _, win := range windows {
		pl, err := scheduler.PlaceWindow(win, constants.DayStartHour, 1)
		if HandleError(w, err, "user_id", userID, "window_id", win.ID) {
			return
		}
		resp.Windows = append(resp.Windows, WindowResponse{Window: win, OffsetMin: int(pl.Top), SpanMin: int(pl.Height)})
	}
	Success(w, resp)
}

// GetEvents returns the event dataset for the coming days.
// GET /schedule/events?lookaheadDays=<n>&timeZone=<IANA>
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)

	lookahead := defaultLookaheadDays
	if raw := r.URL.Query().Get("lookaheadDays"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			BadRequest(w, "lookaheadDays must be an integer")
			return
		}
		lookahead = n
	}

	tz, offset, ok := zoneParams(w, r)
	if !ok {
		return
	}
	ds, err := h.views.ComposeEvents(r.Context(), userID, h.now(), lookahead, tz, offset)
	if HandleError(w, err, "user_id", userID, "lookahead_days", lookahead) {
		return
	}
	Success(w, ds)
}

// zoneParams reads timeZone and utcOffsetMinutes. An absent parameter is
// nil; a present but empty timeZone is still "supplied" and fails later.
func zoneParams(w http.ResponseWriter, r *http.Request) (*string, *int, bool) {
	q := r.URL.Query()
	var tz *string
	if q.Has("timeZone") {
		v := q.Get("timeZone")
		tz = &v
	}
	var offset *int
	if raw := q.Get("utcOffsetMinutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			BadRequest(w, "utcOffsetMinutes must be an integer")
			return nil, nil, false
		}
		offset = &n
	}
	return tz, offset, true
}
