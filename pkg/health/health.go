// Package health serves liveness and readiness probes backed by periodic
// dependency checks.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the checked dependency is usable.
type CheckFunc func(ctx context.Context) error

// Kind tells which probe a check contributes to.
type Kind uint8

const (
	Liveness Kind = iota
	Readiness
)

// Option tunes a registered check.
type Option func(*probe)

// WithTimeout bounds a single run of the check.
func WithTimeout(d time.Duration) Option {
	return func(p *probe) { p.timeout = d }
}

// WithThresholds sets how many consecutive failures mark the check down and
// how many consecutive successes bring it back.
func WithThresholds(failures, successes int) Option {
	return func(p *probe) {
		p.failures = max(failures, 1)
		p.successes = max(successes, 1)
	}
}

// probe is one registered check. Its counters are touched only by the
// goroutine that runs it; the outcome is read concurrently by handlers.
type probe struct {
	name      string
	kind      Kind
	check     CheckFunc
	timeout   time.Duration
	failures  int
	successes int

	failStreak int
	okStreak   int

	up      atomic.Bool
	outcome atomic.Pointer[outcome]
}

type outcome struct {
	err     error
	took    time.Duration
	checked time.Time
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := p.check(ctx)
	p.outcome.Store(&outcome{err: err, took: time.Since(start), checked: start})

	if err != nil {
		p.okStreak = 0
		p.failStreak++
		if p.failStreak >= p.failures {
			p.up.Store(false)
		}
		return
	}
	p.failStreak = 0
	p.okStreak++
	if p.okStreak >= p.successes {
		p.up.Store(true)
	}
}

// Health aggregates probes for one process.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probe
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Health that reports not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// Add registers a check of the given kind. Checks are optimistic: they
// report up until they fail past their threshold.
func (h *Health) Add(kind Kind, name string, check CheckFunc, opts ...Option) {
	p := &probe{
		name:      name,
		kind:      kind,
		check:     check,
		timeout:   time.Second,
		failures:  3,
		successes: 1,
	}
	for _, o := range opts {
		o(p)
	}
	p.up.Store(true)

	h.mu.Lock()
	h.probes = append(h.probes, p)
	h.mu.Unlock()
}

func (h *Health) snapshot(kind Kind) []*probe {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.DeleteFunc(slices.Clone(h.probes), func(p *probe) bool { return p.kind != kind })
}

// RunOnce runs every check concurrently and waits for all of them. It is
// meant for startup, before Start takes over.
func (h *Health) RunOnce(ctx context.Context) {
	h.mu.RLock()
	probes := slices.Clone(h.probes)
	h.mu.RUnlock()

	var g errgroup.Group
	for _, p := range probes {
		g.Go(func() error {
			p.run(ctx)
			return nil
		})
	}
	_ = g.Wait()
}

// Start runs each check on its own ticker until Stop or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := slices.Clone(h.probes)
	h.mu.Unlock()

	for _, p := range probes {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.run(ctx)
				}
			}
		}()
	}
}

// Stop halts the check goroutines and waits for them to exit.
func (h *Health) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.cancel = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.wg.Wait()
}

// SetReady flips the manual readiness gate, e.g. off while draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the manual gate combined with every readiness check.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, p := range h.snapshot(Readiness) {
		if !p.up.Load() {
			return false
		}
	}
	return true
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	probes := h.snapshot(Liveness)
	write(w, allUp(probes), "", probes)
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	probes := h.snapshot(Readiness)
	reason := ""
	if !h.ready.Load() {
		reason = "service is not ready"
	}
	write(w, reason == "" && allUp(probes), reason, probes)
}

func allUp(probes []*probe) bool {
	for _, p := range probes {
		if !p.up.Load() {
			return false
		}
	}
	return true
}

func write(w http.ResponseWriter, ok bool, reason string, probes []*probe) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	if ok {
		e.Str("ok")
	} else {
		e.Str("unhealthy")
	}
	if reason != "" {
		e.FieldStart("reason")
		e.Str(reason)
	}
	if len(probes) > 0 {
		e.FieldStart("checks")
		e.ObjStart()
		for _, p := range probes {
			e.FieldStart(p.name)
			encodeProbe(&e, p)
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	if ok {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_, _ = w.Write(e.Bytes())
}

func encodeProbe(e *jx.Encoder, p *probe) {
	e.ObjStart()
	e.FieldStart("up")
	e.Bool(p.up.Load())
	if o := p.outcome.Load(); o != nil {
		e.FieldStart("took_ms")
		e.Int64(o.took.Milliseconds())
		e.FieldStart("checked_at")
		e.Str(o.checked.UTC().Format(time.RFC3339))
		if o.err != nil {
			e.FieldStart("error")
			e.Str(o.err.Error())
		}
	}
	e.ObjEnd()
}
