package worker

import (
	"context"
	"net"

	"github.com/ow1lab/noctiforge-runner/api/proto"
	"github.com/ow1lab/noctiforge-runner/pkg/log"
	"github.com/ow1lab/noctiforge-runner/pkg/types"
	"google.golang.org/grpc"
)

// Server implements C9: the single worker.Execute RPC. It resolves the
// action name via the control plane, executes via the orchestrator, and
// wraps the outcome as success or problem.
type Server struct {
	proto.UnimplementedWorkerServer
	cp   *ControlPlane
	orch *Orchestrator
	grpc *grpc.Server
}

// NewServer binds the control-plane client and orchestrator behind a
// gRPC server; Serve starts listening.
func NewServer(cp *ControlPlane, orch *Orchestrator) *Server {
	s := &Server{cp: cp, orch: orch}
	s.grpc = grpc.NewServer()
	proto.RegisterWorkerServer(s.grpc, s)
	return s
}

// Execute implements proto.WorkerServer.
func (s *Server) Execute(ctx context.Context, req *proto.ExecuteRequest) (*proto.ExecuteResponse, error) {
	l := log.WithAction(req.Action)

	digest, err := s.cp.Resolve(ctx, req.Action)
	if err != nil {
		l.Warn().Err(err).Msg("resolve failed")
		return &proto.ExecuteResponse{Problem: toProblemBody(err)}, nil
	}

	out, err := s.orch.Execute(ctx, digest, req.Body)
	if err != nil {
		l.Warn().Err(err).Str("digest", digest).Msg("execute failed")
		return &proto.ExecuteResponse{Problem: toProblemBody(err)}, nil
	}

	l.Debug().Str("digest", digest).Msg("execute succeeded")
	return &proto.ExecuteResponse{Body: out}, nil
}

func toProblemBody(err error) *proto.ProblemBody {
	prob, ok := err.(*types.Problem)
	if !ok {
		prob = types.NewProblem(types.ProblemInvoke, err.Error(), nil)
	}
	return &proto.ProblemBody{
		Type:       string(prob.Type),
		Detail:     prob.Detail,
		Instance:   prob.Instance,
		Extensions: prob.Extensions,
	}
}

// Serve listens on addr and blocks until the listener or server stops.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Logger.Info().Str("addr", addr).Msg("worker RPC server listening")
	return s.grpc.Serve(lis)
}

// Stop gracefully stops accepting new connections, letting in-flight
// calls finish.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}
