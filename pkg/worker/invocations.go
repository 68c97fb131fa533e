package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ow1lab/noctiforge-runner/pkg/log"
	"github.com/ow1lab/noctiforge-runner/pkg/metrics"
	"github.com/ow1lab/noctiforge-runner/pkg/runtime"
	"github.com/ow1lab/noctiforge-runner/pkg/types"
)

// Invocations is the concurrency-safe mapping from instance-id to live
// handler. At most one invocation exists per instance-id at any time;
// the container referenced by an invocation exists on disk until the
// invocation is removed. The table lock is never held across container
// I/O — callers must drop it before calling into the runtime, and
// Invocations itself follows that discipline for delete/delete_all.
type Invocations struct {
	paths Paths
	rt    runtime.Runtime

	mu    sync.Mutex
	table map[string]*types.Invocation
}

// NewInvocations constructs an empty invocation table bound to a
// runtime and worker root for delete's container teardown.
func NewInvocations(paths Paths, rt runtime.Runtime) *Invocations {
	return &Invocations{
		paths: paths,
		rt:    rt,
		table: make(map[string]*types.Invocation),
	}
}

// Get returns the invocation for id and touches last_accessed to now.
func (iv *Invocations) Get(id string) (types.Invocation, bool) {
	return iv.getInternal(id, true)
}

// Peek returns the invocation for id without touching it. Used by the
// reaper so that an inspection never resets the eviction clock.
func (iv *Invocations) Peek(id string) (types.Invocation, bool) {
	return iv.getInternal(id, false)
}

func (iv *Invocations) getInternal(id string, touch bool) (types.Invocation, bool) {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	entry, ok := iv.table[id]
	if !ok {
		return types.Invocation{}, false
	}
	if touch {
		entry.LastAccessed = time.Now()
	}
	return *entry, true
}

// Keys returns a snapshot of the current instance ids.
func (iv *Invocations) Keys() []string {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	keys := make([]string, 0, len(iv.table))
	for k := range iv.table {
		keys = append(keys, k)
	}
	return keys
}

// Insert unconditionally overwrites the entry for id and returns it.
// Idempotent by design: insert(id, u1) then insert(id, u2) yields
// Get(id).URL == u2.
func (iv *Invocations) Insert(id, url string) types.Invocation {
	l := log.WithInstanceID(id)
	l.Debug().Msg("inserting invocation")

	entry := &types.Invocation{
		InstanceID:   id,
		URL:          url,
		LastAccessed: time.Now(),
	}

	iv.mu.Lock()
	iv.table[id] = entry
	size := len(iv.table)
	iv.mu.Unlock()

	metrics.InvocationsActive.Set(float64(size))
	return *entry
}

// Delete removes the entry for id if present, then loads and destroys
// the underlying container. Returns successfully (no-op) when no entry
// exists for id, making repeated calls idempotent.
func (iv *Invocations) Delete(ctx context.Context, id string) error {
	iv.mu.Lock()
	_, existed := iv.table[id]
	delete(iv.table, id)
	size := len(iv.table)
	iv.mu.Unlock()

	if existed {
		metrics.InvocationsActive.Set(float64(size))
	}
	if !existed {
		return nil
	}

	l := log.WithInstanceID(id)
	l.Info().Msg("deleting invocation")

	c, err := iv.rt.Load(ctx, iv.paths.StateDir(), id)
	if err != nil {
		// Nothing left to tear down; still remove the bundle directory
		// best-effort so a stale load doesn't leak disk.
		_ = removeBundleDir(iv.paths, id)
		return nil
	}
	return cleanupContainer(ctx, iv.paths, iv.rt, c, id)
}

// DeleteAll snapshots the current keys and deletes each in turn. Best
// effort: the first error aborts the sweep.
func (iv *Invocations) DeleteAll(ctx context.Context) error {
	for _, id := range iv.Keys() {
		if err := iv.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the current number of live entries, used by tests.
func (iv *Invocations) Size() int {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return len(iv.table)
}
