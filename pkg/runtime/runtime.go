// Package runtime is the polymorphism boundary over the underlying
// container library (see C5 in the worker design): a narrow interface
// with one production implementation backed by runc, and a fake used by
// unit tests that never touch a real kernel namespace.
package runtime

import (
	"context"
	"fmt"

	"github.com/ow1lab/noctiforge-runner/pkg/types"
)

// Container is a handle to one container instance, as returned by Build
// or Load. It carries just enough to derive the handler socket URL and
// to drive subsequent Start/Status/Delete calls.
type Container struct {
	InstanceID string
	StateRoot  string
	BundleDir  string
}

// Runtime builds, starts, loads, observes and deletes containers. It
// exposes exactly the operations the orchestrator's policy layer needs;
// nothing else reaches into the underlying container library directly.
type Runtime interface {
	// Build constructs a new container in the created state from an
	// already-materialized bundle directory (config.json + rootfs/
	// must already exist at bundleDir). The container is not started.
	Build(ctx context.Context, instanceID, stateRoot, bundleDir string) (*Container, error)

	// Start transitions a created container to running.
	Start(ctx context.Context, c *Container) error

	// Load rehydrates a handle for a previously created container.
	Load(ctx context.Context, stateRoot, instanceID string) (*Container, error)

	// Status observes the current state of a container.
	Status(ctx context.Context, c *Container) (types.ContainerStatus, error)

	// Delete force-deletes a container, tearing down its namespaces
	// and cgroup. Deleting an already-deleted or unknown container is
	// not an error.
	Delete(ctx context.Context, c *Container) error

	// Bundle returns the absolute bundle directory path for a
	// container, used to derive the handler socket URL.
	Bundle(c *Container) string
}

// ErrNotFound is returned by Load when no container state exists for
// the given instance id.
var ErrNotFound = fmt.Errorf("runtime: container not found")
