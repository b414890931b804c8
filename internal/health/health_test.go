package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func pass(context.Context) error { return nil }

func serve(t *testing.T, h *Handler, path string) (int, reportJSON) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var rep reportJSON
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec.Code, rep
}

func TestHealthz_IgnoresCheckers(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "store", Check: func(context.Context) error { return errors.New("down") }})
	code, rep := serve(t, h, "/healthz")
	if code != http.StatusOK || rep.Status != "ok" {
		t.Errorf("healthz = %d %q, want 200 ok", code, rep.Status)
	}
	if len(rep.Checks) != 0 {
		t.Errorf("healthz ran checks: %v", rep.Checks)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checkers   []Checker
		wantCode   int
		wantStatus string
		wantChecks map[string]checkJSON
	}{
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "all pass",
			checkers: []Checker{
				{Name: "store", Check: pass},
				{Name: "uploads", Check: pass},
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantChecks: map[string]checkJSON{"store": {Status: "ok"}, "uploads": {Status: "ok"}},
		},
		{
			name: "store down",
			checkers: []Checker{
				{Name: "store", Check: func(context.Context) error { return errors.New("database is locked") }},
				{Name: "uploads", Check: pass},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
			wantChecks: map[string]checkJSON{
				"store":   {Status: "fail", Error: "database is locked"},
				"uploads": {Status: "ok"},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			code, rep := serve(t, New(tc.checkers...), "/readyz")
			if code != tc.wantCode || rep.Status != tc.wantStatus {
				t.Errorf("readyz = %d %q, want %d %q", code, rep.Status, tc.wantCode, tc.wantStatus)
			}
			for name, want := range tc.wantChecks {
				got := rep.Checks[name]
				if got.Status != want.Status || got.Error != want.Error {
					t.Errorf("check %s = %+v, want %+v", name, got, want)
				}
			}
		})
	}
}

func TestRun_ChecksConcurrently(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	slow := func(context.Context) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}
	h := New(
		Checker{Name: "store", Check: slow},
		Checker{Name: "ffmpeg", Check: slow},
		Checker{Name: "uploads", Check: slow},
	)

	outcomes, ok := h.Run(context.Background())
	if !ok {
		t.Fatalf("Run failed: %+v", outcomes)
	}
	if peak.Load() < 2 {
		t.Errorf("peak concurrency = %d, want checks to overlap", peak.Load())
	}
	for _, o := range outcomes {
		if o.Elapsed < 50*time.Millisecond {
			t.Errorf("%s elapsed = %v, want >= 50ms", o.Name, o.Elapsed)
		}
	}
}

func TestRun_CancelledContextFailsChecks(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "store", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes, ok := h.Run(ctx)
	if ok {
		t.Fatal("Run passed with a cancelled context")
	}
	if !errors.Is(outcomes[0].Err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", outcomes[0].Err)
	}
}
