package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/julianstephens/timeblock/internal/runner"
)

// RunScheduler runs missed reconciliation and a backlog pass for the caller.
// POST /scheduler/run
func (h *Handler) RunScheduler(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)

	var req RunRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			BadRequest(w, "invalid request body")
			return
		}
	}
	if req.WriteThroughDays != nil && *req.WriteThroughDays < 0 {
		BadRequest(w, "writeThroughDays must not be negative")
		return
	}
	opts := req.options(h.defaults)

	tzName := ""
	if opts.TimeZone != nil {
		tzName = *opts.TimeZone
	}
	res, err := h.passes.Pass(r.Context(), runner.TriggerHTTP, userID, opts)
	if HandleError(w, err, "user_id", userID, "horizon", opts.WriteThroughDays, "time_zone", tzName) {
		return
	}
	Success(w, NewRunResponse(res))
}
