// Package health implements liveness and readiness probes in the Kubernetes
// style. Every probe runs on its own ticker goroutine and flips state only
// after a run of consecutive failures or successes, so a single slow Mongo
// ping does not bounce the pod out of the load balancer.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// ProbeFunc checks one dependency. A nil return means healthy.
type ProbeFunc func(ctx context.Context) error

// defaults mirror the kubelet's probe configuration.
const (
	defaultFailAfter = 3
	defaultOKAfter   = 1
)

// probe is one registered check plus its debounce state. State is guarded by
// mu: run() writes from the ticker goroutine, the HTTP handlers read from
// arbitrary goroutines.
type probe struct {
	name    string
	timeout time.Duration
	fn      ProbeFunc

	failAfter int
	okAfter   int

	mu      sync.Mutex
	fails   int
	oks     int
	healthy bool
	lastErr error
}

// Option tunes a single probe at registration time.
type Option func(*probe)

// WithFailureThreshold sets how many consecutive failures mark the probe
// unhealthy.
func WithFailureThreshold(n int) Option {
	return func(p *probe) {
		if n > 0 {
			p.failAfter = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes mark the probe
// healthy again.
func WithSuccessThreshold(n int) Option {
	return func(p *probe) {
		if n > 0 {
			p.okAfter = n
		}
	}
}

func (p *probe) run(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(probeCtx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
	if err != nil {
		p.oks = 0
		p.fails++
		if p.fails >= p.failAfter {
			p.healthy = false
		}
		return
	}
	p.fails = 0
	p.oks++
	if p.oks >= p.okAfter {
		p.healthy = true
	}
}

// state returns the current health flag and last observed error.
func (p *probe) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy, p.lastErr
}

// Health owns the registered probes and serves the /livez and /readyz
// endpoints.
type Health struct {
	ready atomic.Bool

	// mu guards the probe slices and cancel. Registration happens before
	// Start; the handlers only snapshot the slices.
	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New returns a Health that reports not-ready until SetReady(true) is called.
func New() *Health {
	return &Health{}
}

func newProbe(name string, timeout time.Duration, fn ProbeFunc, opts []Option) *probe {
	p := &probe{
		name:      name,
		timeout:   timeout,
		fn:        fn,
		failAfter: defaultFailAfter,
		okAfter:   defaultOKAfter,
		healthy:   true, // assume healthy until proven otherwise
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddLiveness registers a liveness probe: is the process itself still sane
// (goroutine leaks, deadlocks).
func (h *Health) AddLiveness(name string, timeout time.Duration, fn ProbeFunc, opts ...Option) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newProbe(name, timeout, fn, opts))
}

// AddReadiness registers a readiness probe: can the service usefully take
// traffic (database reachable, dependencies up).
func (h *Health) AddReadiness(name string, timeout time.Duration, fn ProbeFunc, opts ...Option) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newProbe(name, timeout, fn, opts))
}

// Start launches one ticker goroutine per registered probe. Each probe fires
// immediately, then every interval, until ctx is cancelled or Stop is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := make([]*probe, 0, len(h.liveness)+len(h.readiness))
	probes = append(probes, h.liveness...)
	probes = append(probes, h.readiness...)
	h.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.run(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels all probe goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Called with true once wiring is
// complete and with false at the start of graceful shutdown so the load
// balancer drains the instance.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}

	h.mu.RLock()
	probes := h.readiness
	h.mu.RUnlock()

	for _, p := range probes {
		if ok, _ := p.state(); !ok {
			return false
		}
	}
	return true
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleLive serves the /livez endpoint: 200 {"status":"ok"} while all
// liveness probes pass, otherwise 503 with the failing probes listed.
func (h *Health) HandleLive(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := append([]*probe(nil), h.liveness...)
	h.mu.RUnlock()

	writeStatus(w, failures(probes))
}

// HandleReady serves the /readyz endpoint. It additionally requires the
// manual SetReady gate to be open.
func (h *Health) HandleReady(w http.ResponseWriter, _ *http.Request) {
	ready := h.ready.Load()

	h.mu.RLock()
	probes := append([]*probe(nil), h.readiness...)
	h.mu.RUnlock()

	failed := failures(probes)
	if !ready {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

// failures maps probe name to error text for every unhealthy probe, using the
// last observed error rather than re-running the probe inline.
func failures(probes []*probe) map[string]string {
	failed := make(map[string]string)
	for _, p := range probes {
		ok, err := p.state()
		if ok {
			continue
		}
		if err != nil {
			failed[p.name] = err.Error()
		} else {
			failed[p.name] = "probe is unhealthy"
		}
	}
	return failed
}

func writeStatus(w http.ResponseWriter, failed map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failed
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	// Status line is already on the wire; an encode error here means the
	// client went away.
	_ = json.NewEncoder(w).Encode(resp)
}
