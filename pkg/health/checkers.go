package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger is satisfied by the Mongo and Redis clients used for readiness
// probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping adapts any Pinger into a ProbeFunc.
func Ping(p Pinger) ProbeFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// MaxGoroutines reports unhealthy once the goroutine count exceeds limit.
// Useful as a liveness probe to catch goroutine leaks.
func MaxGoroutines(limit int) ProbeFunc {
	return func(_ context.Context) error {
		count := runtime.NumGoroutine()
		if count > limit {
			return errors.Errorf("goroutine count %d exceeds limit %d", count, limit)
		}
		return nil
	}
}
