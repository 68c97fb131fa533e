package runtime

import (
	"context"
	"fmt"
	"path/filepath"

	runc "github.com/containerd/go-runc"
	"github.com/ow1lab/noctiforge-runner/pkg/log"
	"github.com/ow1lab/noctiforge-runner/pkg/types"
)

// RuncRuntime drives a real `runc` binary on PATH. There is no image
// registry or long-running daemon in this system: artifacts arrive as
// bare extracted rootfs trees (see the registry client), and this is
// the direct equivalent of invoking `runc create`/`start`/`delete`
// against a bundle directory.
type RuncRuntime struct {
	command string
}

var _ Runtime = (*RuncRuntime)(nil)

// NewRuncRuntime constructs a RuncRuntime. command is the runc binary
// name or absolute path; empty defaults to "runc" resolved via PATH.
func NewRuncRuntime(command string) *RuncRuntime {
	if command == "" {
		command = "runc"
	}
	return &RuncRuntime{command: command}
}

func (r *RuncRuntime) client(stateRoot string) *runc.Runc {
	return &runc.Runc{
		Command:       r.command,
		Root:          stateRoot,
		Log:           filepath.Join(stateRoot, "runc-log.json"),
		LogFormat:     runc.JSON,
		Setpgid:       true,
		SystemdCgroup: true, // preserved verbatim from source to allow correct delegation under systemd user slices
	}
}

func (r *RuncRuntime) Build(ctx context.Context, instanceID, stateRoot, bundleDir string) (*Container, error) {
	rc := r.client(stateRoot)
	if err := rc.Create(ctx, instanceID, bundleDir, &runc.CreateOpts{}); err != nil {
		return nil, fmt.Errorf("runtime: create %s: %w", instanceID, err)
	}
	return &Container{InstanceID: instanceID, StateRoot: stateRoot, BundleDir: bundleDir}, nil
}

func (r *RuncRuntime) Start(ctx context.Context, c *Container) error {
	rc := r.client(c.StateRoot)
	if err := rc.Start(ctx, c.InstanceID); err != nil {
		return fmt.Errorf("runtime: start %s: %w", c.InstanceID, err)
	}
	return nil
}

func (r *RuncRuntime) Load(ctx context.Context, stateRoot, instanceID string) (*Container, error) {
	rc := r.client(stateRoot)
	state, err := rc.State(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, instanceID, err)
	}
	return &Container{InstanceID: instanceID, StateRoot: stateRoot, BundleDir: state.Bundle}, nil
}

func (r *RuncRuntime) Status(ctx context.Context, c *Container) (types.ContainerStatus, error) {
	rc := r.client(c.StateRoot)
	state, err := rc.State(ctx, c.InstanceID)
	if err != nil {
		return types.ContainerStatusUnknown, fmt.Errorf("runtime: state %s: %w", c.InstanceID, err)
	}
	switch state.Status {
	case "created":
		return types.ContainerStatusCreated, nil
	case "running":
		return types.ContainerStatusRunning, nil
	case "stopped":
		return types.ContainerStatusStopped, nil
	default:
		return types.ContainerStatusUnknown, nil
	}
}

func (r *RuncRuntime) Delete(ctx context.Context, c *Container) error {
	rc := r.client(c.StateRoot)
	if err := rc.Delete(ctx, c.InstanceID, &runc.DeleteOpts{Force: true}); err != nil {
		l := log.WithInstanceID(c.InstanceID)
		l.Warn().Err(err).Msg("runc delete failed")
	}
	return nil
}

func (r *RuncRuntime) Bundle(c *Container) string {
	return c.BundleDir
}
