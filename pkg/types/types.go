package types

import (
	"time"

	"github.com/google/uuid"
)

// Invocation is a live (or recently live) handler, cached in the
// invocation table: (instance-id, handler URL, last-access timestamp).
type Invocation struct {
	InstanceID   string
	URL          string // unix://{bundle}/rootfs/run/app.sock
	LastAccessed time.Time
}

// ContainerStatus is the observed lifecycle state of a container handle.
type ContainerStatus string

const (
	ContainerStatusCreated ContainerStatus = "created"
	ContainerStatusRunning ContainerStatus = "running"
	ContainerStatusStopped ContainerStatus = "stopped"
	ContainerStatusUnknown ContainerStatus = "unknown"
)

// ProblemType is the stable `type` tag carried on every problem outcome.
type ProblemType string

const (
	ProblemResolve   ProblemType = "worker/resolve"
	ProblemFetch     ProblemType = "worker/fetch"
	ProblemContainer ProblemType = "worker/container"
	ProblemStartup   ProblemType = "worker/startup"
	ProblemInvoke    ProblemType = "worker/invoke"
)

// Problem is the error shape returned on the worker.Execute RPC's
// failure branch: a stable type tag, a human-readable detail, a
// per-request correlation id, and contextual extension pairs (digest,
// action name).
type Problem struct {
	Type       ProblemType
	Detail     string
	Instance   string
	Extensions map[string]string
}

func (p *Problem) Error() string {
	return string(p.Type) + ": " + p.Detail
}

// NewProblem builds a Problem carrying a fresh correlation id.
func NewProblem(t ProblemType, detail string, extensions map[string]string) *Problem {
	return &Problem{
		Type:       t,
		Detail:     detail,
		Instance:   uuid.NewString(),
		Extensions: extensions,
	}
}
