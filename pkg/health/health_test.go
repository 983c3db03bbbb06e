package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func passing() CheckFunc { return func(context.Context) error { return nil } }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

type response struct {
	status string
	reason string
	checks map[string]bool
	errs   map[string]string
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response {
	t.Helper()
	r := response{checks: map[string]bool{}, errs: map[string]string{}}
	err := jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			v, err := d.Str()
			r.status = v
			return err
		case "reason":
			v, err := d.Str()
			r.reason = v
			return err
		case "checks":
			return d.Obj(func(d *jx.Decoder, name string) error {
				return d.Obj(func(d *jx.Decoder, field string) error {
					switch field {
					case "up":
						v, err := d.Bool()
						r.checks[name] = v
						return err
					case "error":
						v, err := d.Str()
						r.errs[name] = v
						return err
					default:
						return d.Skip()
					}
				})
			})
		default:
			return d.Skip()
		}
	})
	require.NoError(t, err)
	return r
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		checks     map[string]CheckFunc
		wantCode   int
		wantStatus string
		wantReason string
	}{
		{
			name:       "ready with passing checks",
			ready:      true,
			checks:     map[string]CheckFunc{"postgres": passing()},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:       "gate closed",
			checks:     map[string]CheckFunc{"postgres": passing()},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			wantReason: "service is not ready",
		},
		{
			name:       "one dependency down",
			ready:      true,
			checks:     map[string]CheckFunc{"postgres": passing(), "redis": failing("connection refused")},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			for name, check := range tt.checks {
				h.Add(Readiness, name, check, WithThresholds(1, 1))
			}
			h.RunOnce(context.Background())
			h.SetReady(tt.ready)

			w := httptest.NewRecorder()
			h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			got := decode(t, w)
			assert.Equal(t, tt.wantStatus, got.status)
			assert.Equal(t, tt.wantReason, got.reason)
			assert.Len(t, got.checks, len(tt.checks))
		})
	}
}

func TestReadyEndpoint_ReportsCheckError(t *testing.T) {
	h := New()
	h.Add(Readiness, "redis", PingCheck("redis", stubPinger{err: errors.New("refused")}), WithThresholds(1, 1))
	h.SetReady(true)
	h.RunOnce(context.Background())

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	got := decode(t, w)
	assert.False(t, got.checks["redis"])
	assert.Contains(t, got.errs["redis"], "ping redis")
}

func TestThresholds(t *testing.T) {
	h := New()
	fail := true
	h.Add(Readiness, "db", func(context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	}, WithThresholds(3, 2))
	h.SetReady(true)
	ctx := context.Background()

	h.RunOnce(ctx)
	h.RunOnce(ctx)
	assert.True(t, h.IsReady(), "two failures stay under the threshold")

	h.RunOnce(ctx)
	assert.False(t, h.IsReady())

	fail = false
	h.RunOnce(ctx)
	assert.False(t, h.IsReady(), "one success is not enough to recover")

	h.RunOnce(ctx)
	assert.True(t, h.IsReady())
}

func TestLiveEndpoint_IgnoresReadinessGate(t *testing.T) {
	h := New()
	h.Add(Liveness, "goroutines", GoroutineCountCheck(1_000_000))
	h.Add(Readiness, "db", failing("down"), WithThresholds(1, 1))
	h.RunOnce(context.Background())

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Equal(t, "ok", got.status)
	assert.Equal(t, map[string]bool{"goroutines": true}, got.checks)
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}

func TestStartStop(t *testing.T) {
	h := New()
	h.Add(Readiness, "db", failing("down"), WithThresholds(1, 1))
	h.SetReady(true)

	h.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)
	h.Stop()
	h.Stop()
}
