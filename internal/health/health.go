// Package health checks the dependencies the meeting assistant needs at
// runtime: the record store, the uploads directory, ffmpeg and, for local
// transcription, the whisper model file.
//
// One [Handler] backs the doctor command ([Handler.Run]) and the /healthz
// (liveness) and /readyz (readiness) endpoints. Readiness fails with 503 when
// any check fails.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const checkTimeout = 5 * time.Second

// Checker is a named dependency probe. Check returns nil when the dependency
// is usable and must honour ctx.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Outcome is the result of one [Checker].
type Outcome struct {
	Name    string
	Err     error
	Elapsed time.Duration
}

// OK reports whether the check passed.
func (o Outcome) OK() bool { return o.Err == nil }

type checkJSON struct {
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type reportJSON struct {
	Status string               `json:"status"`
	Checks map[string]checkJSON `json:"checks,omitempty"`
}

// Handler evaluates a fixed list of checkers.
type Handler struct {
	checkers []Checker
}

// New returns a Handler for checkers. Outcomes are reported in the given order.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Run evaluates every checker concurrently, each under its own deadline
// derived from ctx. It reports the outcomes in registration order and
// whether all of them passed.
func (h *Handler) Run(ctx context.Context) ([]Outcome, bool) {
	out := make([]Outcome, len(h.checkers))
	var g errgroup.Group
	for i, c := range h.checkers {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			start := time.Now()
			err := c.Check(cctx)
			out[i] = Outcome{Name: c.Name, Err: err, Elapsed: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()

	allOK := true
	for _, o := range out {
		allOK = allOK && o.OK()
	}
	return out, allOK
}

// Healthz reports liveness. Serving the request is proof enough.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, reportJSON{Status: "ok"})
}

// Readyz runs every check and answers 200 when all pass, 503 otherwise.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	outcomes, allOK := h.Run(r.Context())

	rep := reportJSON{Status: "ok", Checks: make(map[string]checkJSON, len(outcomes))}
	for _, o := range outcomes {
		c := checkJSON{Status: "ok", DurationMS: o.Elapsed.Milliseconds()}
		if !o.OK() {
			c.Status, c.Error = "fail", o.Err.Error()
		}
		rep.Checks[o.Name] = c
	}
	code := http.StatusOK
	if !allOK {
		rep.Status = "fail"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, rep)
}

// Register mounts GET /healthz and GET /readyz on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
