package worker

import (
	"context"
	"fmt"

	"github.com/ow1lab/noctiforge-runner/api/proto"
	"github.com/ow1lab/noctiforge-runner/pkg/types"
)

// resolver performs the single-RPC name-to-digest lookup. The
// production implementation wraps *proto.ControlPlaneClient; tests
// supply an in-memory fake.
type resolver interface {
	resolve(ctx context.Context, action string) (digest string, found bool, err error)
}

// ControlPlane is the control-plane client (C4): resolves an action
// name to a content-addressed digest in one RPC round trip (§4.4).
type ControlPlane struct {
	r resolver
}

// NewControlPlane binds a control-plane client to its endpoint.
func NewControlPlane(client *proto.ControlPlaneClient) *ControlPlane {
	return &ControlPlane{r: grpcResolver{client}}
}

func newControlPlaneWithResolver(r resolver) *ControlPlane {
	return &ControlPlane{r: r}
}

type grpcResolver struct {
	client *proto.ControlPlaneClient
}

func (g grpcResolver) resolve(ctx context.Context, action string) (string, bool, error) {
	resp, err := g.client.GetDigestByName(ctx, &proto.GetDigestByNameRequest{Key: action})
	if err != nil {
		return "", false, err
	}
	return resp.Digest, resp.Found, nil
}

// Resolve maps an action name to a digest. A not-found response, or a
// transport error, is surfaced as a worker/resolve problem (§7).
func (cp *ControlPlane) Resolve(ctx context.Context, action string) (string, error) {
	digest, found, err := cp.r.resolve(ctx, action)
	if err != nil {
		return "", types.NewProblem(types.ProblemResolve, fmt.Sprintf("resolve %q: %v", action, err), map[string]string{"action": action})
	}
	if !found {
		return "", types.NewProblem(types.ProblemResolve, fmt.Sprintf("no mapping for action %q", action), map[string]string{"action": action})
	}
	return digest, nil
}
