package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/ow1lab/noctiforge-runner/pkg/log"
	"github.com/ow1lab/noctiforge-runner/pkg/metrics"
	"github.com/ow1lab/noctiforge-runner/pkg/runtime"
	"github.com/ow1lab/noctiforge-runner/pkg/types"
)

// invoker performs the downstream handler.Invoke call once a handler
// URL is ready. The production implementation dials a fresh gRPC
// connection per call; tests supply an in-memory fake.
type invoker interface {
	invoke(ctx context.Context, url string, body []byte) ([]byte, error)
}

// Orchestrator implements C7: resolves a digest to a warm handler,
// serializing concurrent creation per instance-id, then waits for
// readiness and proxies the invocation.
type Orchestrator struct {
	paths   Paths
	rt      runtime.Runtime
	reg     *Registry
	inv     *Invocations
	sysUser SysUser
	invoke  invoker
	ready   func(ctx context.Context, url string) error

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewOrchestrator wires the registry client, container runtime and
// invocation table behind the single execute() entry point.
func NewOrchestrator(paths Paths, rt runtime.Runtime, reg *Registry, inv *Invocations, sysUser SysUser) *Orchestrator {
	return &Orchestrator{
		paths:   paths,
		rt:      rt,
		reg:     reg,
		inv:     inv,
		sysUser: sysUser,
		invoke:  grpcInvoker{},
		ready:   waitReady,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Execute implements §4.7: id = digest[:16]; get or create the handler;
// wait for readiness every time, since a loaded container may still be
// initializing; then proxy the invocation.
func (o *Orchestrator) Execute(ctx context.Context, digest string, body []byte) ([]byte, error) {
	timer := metrics.NewTimer()

	url, err := o.getOrCreateHandler(ctx, digest)
	if err != nil {
		timer.ObserveDurationVec(metrics.ExecuteDuration, "error")
		return nil, err
	}

	if err := o.ready(ctx, url); err != nil {
		timer.ObserveDurationVec(metrics.ExecuteDuration, "error")
		return nil, err
	}

	out, err := o.invoke.invoke(ctx, url, body)
	if err != nil {
		timer.ObserveDurationVec(metrics.ExecuteDuration, "error")
		return nil, types.NewProblem(types.ProblemInvoke, fmt.Sprintf("invoke: %v", err), map[string]string{"digest": digest})
	}

	timer.ObserveDurationVec(metrics.ExecuteDuration, "ok")
	return out, nil
}

// getOrCreateHandler implements §4.7's get_or_create_handler. A
// touching get() hit returns immediately. A miss serializes creation
// behind a per-instance-id lock held across fetch+build, so concurrent
// misses for the same digest never race C5 new into a collision (§4.7
// known race, resolved by serialization rather than reuse-on-collision,
// which container.go also supports as a second line of defense).
func (o *Orchestrator) getOrCreateHandler(ctx context.Context, digest string) (string, error) {
	id := digest[:16]

	if inv, ok := o.inv.Get(id); ok {
		return inv.URL, nil
	}

	lock := o.instanceLock(id)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the instance lock: another goroutine may have
	// finished creation while we waited for it.
	if inv, ok := o.inv.Get(id); ok {
		return inv.URL, nil
	}

	artifactDir, err := o.reg.Fetch(ctx, digest)
	if err != nil {
		return "", err
	}

	c, url, err := newContainer(ctx, o.paths, o.rt, o.sysUser, digest, artifactDir)
	if err != nil {
		return "", err
	}

	l := log.WithDigest(digest).With().Str("instance_id", c.InstanceID).Logger()
	l.Info().Msg("handler ready")
	o.inv.Insert(id, url)
	return url, nil
}

func (o *Orchestrator) instanceLock(id string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	l, ok := o.locks[id]
	if !ok {
		l = &sync.Mutex{}
		o.locks[id] = l
	}
	return l
}
