package api

import (
	"net/http"

	"github.com/julianstephens/timeblock/internal/metrics"
)

// RegisterRoutes registers every endpoint on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(),
		Logging(),
	)

	mux.Handle("POST /scheduler/run", chain(RequireUser(h.limiter.Middleware(http.HandlerFunc(h.RunScheduler)))))
	mux.Handle("GET /windows", chain(RequireUser(http.HandlerFunc(h.GetWindows))))
	mux.Handle("GET /schedule/events", chain(RequireUser(http.HandlerFunc(h.GetEvents))))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
}

// NewMux returns a mux with every route registered.
func (h *Handler) NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}
