package runtime

import (
	"context"
	"sync"

	"github.com/ow1lab/noctiforge-runner/pkg/types"
)

// FakeRuntime is an in-memory Runtime used by unit tests that exercise
// the orchestrator, invocation table, and reaper without touching a
// real kernel namespace or requiring a runc binary on PATH.
type FakeRuntime struct {
	mu         sync.Mutex
	containers map[string]*Container
	statuses   map[string]types.ContainerStatus
	deleted    map[string]int

	// FailBuild, when non-nil, is returned by Build for every call.
	FailBuild error
	// FailStart, when non-nil, is returned by Start for every call.
	FailStart error
}

var _ Runtime = (*FakeRuntime)(nil)

// NewFakeRuntime constructs an empty FakeRuntime.
func NewFakeRuntime() *FakeRuntime {
	return &FakeRuntime{
		containers: make(map[string]*Container),
		statuses:   make(map[string]types.ContainerStatus),
		deleted:    make(map[string]int),
	}
}

func (f *FakeRuntime) Build(ctx context.Context, instanceID, stateRoot, bundleDir string) (*Container, error) {
	if f.FailBuild != nil {
		return nil, f.FailBuild
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &Container{InstanceID: instanceID, StateRoot: stateRoot, BundleDir: bundleDir}
	f.containers[instanceID] = c
	f.statuses[instanceID] = types.ContainerStatusCreated
	return c, nil
}

func (f *FakeRuntime) Start(ctx context.Context, c *Container) error {
	if f.FailStart != nil {
		return f.FailStart
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[c.InstanceID] = types.ContainerStatusRunning
	return nil
}

func (f *FakeRuntime) Load(ctx context.Context, stateRoot, instanceID string) (*Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[instanceID]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (f *FakeRuntime) Status(ctx context.Context, c *Container) (types.ContainerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.statuses[c.InstanceID]
	if !ok {
		return types.ContainerStatusUnknown, nil
	}
	return s, nil
}

func (f *FakeRuntime) Delete(ctx context.Context, c *Container) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.containers, c.InstanceID)
	delete(f.statuses, c.InstanceID)
	f.deleted[c.InstanceID]++
	return nil
}

func (f *FakeRuntime) Bundle(c *Container) string {
	return c.BundleDir
}

// DeleteCount reports how many times Delete has been called for an
// instance id, used by tests asserting delete-idempotence.
func (f *FakeRuntime) DeleteCount(instanceID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleted[instanceID]
}

// Exists reports whether a container handle is currently tracked.
func (f *FakeRuntime) Exists(instanceID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.containers[instanceID]
	return ok
}
