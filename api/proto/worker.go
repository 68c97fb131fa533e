package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// WorkerServer is the worker's single inbound RPC surface (§6 worker.Execute).
type WorkerServer interface {
	Execute(context.Context, *ExecuteRequest) (*ExecuteResponse, error)
}

// UnimplementedWorkerServer can be embedded by a server implementation
// to satisfy WorkerServer before Execute is overridden.
type UnimplementedWorkerServer struct{}

func (UnimplementedWorkerServer) Execute(context.Context, *ExecuteRequest) (*ExecuteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Execute not implemented")
}

// RegisterWorkerServer attaches srv to a grpc.Server under the Worker
// service descriptor.
func RegisterWorkerServer(s *grpc.Server, srv WorkerServer) {
	s.RegisterService(&workerServiceDesc, srv)
}

func workerExecuteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ExecuteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/noctiforge.worker.Worker/Execute"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerServer).Execute(ctx, req.(*ExecuteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var workerServiceDesc = grpc.ServiceDesc{
	ServiceName: "noctiforge.worker.Worker",
	HandlerType: (*WorkerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Execute", Handler: workerExecuteHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "worker.proto",
}

// WorkerClient dials the worker's Execute RPC using the "proto" codec.
type WorkerClient struct {
	cc *grpc.ClientConn
}

// NewWorkerClient wraps an established connection.
func NewWorkerClient(cc *grpc.ClientConn) *WorkerClient {
	return &WorkerClient{cc: cc}
}

func (c *WorkerClient) Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResponse, error) {
	out := new(ExecuteResponse)
	err := c.cc.Invoke(ctx, "/noctiforge.worker.Worker/Execute", req, out, grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}
