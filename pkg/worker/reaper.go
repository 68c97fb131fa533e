package worker

import (
	"context"
	"time"

	"github.com/ow1lab/noctiforge-runner/pkg/log"
	"github.com/ow1lab/noctiforge-runner/pkg/metrics"
)

// Reaper implements C10: on a fixed tick, evict invocations that have
// been idle longer than resourceTTL. It runs with its own cancellation
// token, distinct from the RPC server's shutdown signal, so the two can
// be stopped in the order bootstrap requires (§4.11: stop accepting
// connections, stop the reaper, delete_all, exit).
type Reaper struct {
	inv         *Invocations
	tickEvery   time.Duration
	resourceTTL time.Duration
}

// NewReaper binds a reaper to the invocation table it sweeps.
func NewReaper(inv *Invocations, tickEvery, resourceTTL time.Duration) *Reaper {
	return &Reaper{inv: inv, tickEvery: tickEvery, resourceTTL: resourceTTL}
}

// Run blocks, sweeping at tickEvery, until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReaperCycleDuration)

	now := time.Now()
	for _, id := range r.inv.Keys() {
		inv, ok := r.inv.Peek(id)
		if !ok {
			continue
		}
		age := now.Sub(inv.LastAccessed)
		if age <= r.resourceTTL {
			continue
		}

		l := log.WithInstanceID(id)
		l.Info().Dur("age", age).Msg("evicting idle invocation")
		if err := r.inv.Delete(ctx, id); err != nil {
			l.Error().Err(err).Msg("reaper eviction failed")
			continue
		}
		metrics.ReaperEvictionsTotal.Inc()
	}
}
