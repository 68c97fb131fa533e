package proto

import (
	"context"

	"google.golang.org/grpc"
)

// RegistryServer serves registry.Pull: a server-streaming RPC that
// writes chunks of a tar archive for the requested digest.
type RegistryServer interface {
	Pull(*PullRequest, RegistryPullServer) error
}

// RegistryPullServer is the server-side handle for a streaming Pull call.
type RegistryPullServer interface {
	Send(*PullChunk) error
	grpc.ServerStream
}

func RegisterRegistryServer(s *grpc.Server, srv RegistryServer) {
	s.RegisterService(&registryServiceDesc, srv)
}

type registryPullServer struct {
	grpc.ServerStream
}

func (x *registryPullServer) Send(chunk *PullChunk) error {
	return x.ServerStream.SendMsg(chunk)
}

func registryPullHandler(srv any, stream grpc.ServerStream) error {
	req := new(PullRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(RegistryServer).Pull(req, &registryPullServer{stream})
}

var registryServiceDesc = grpc.ServiceDesc{
	ServiceName: "noctiforge.registry.Registry",
	HandlerType: (*RegistryServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Pull",
			Handler:       registryPullHandler,
			ServerStreams: true,
		},
	},
	Metadata: "registry.proto",
}

// RegistryClient dials registry.Pull.
type RegistryClient struct {
	cc *grpc.ClientConn
}

func NewRegistryClient(cc *grpc.ClientConn) *RegistryClient {
	return &RegistryClient{cc: cc}
}

// RegistryPullClient is the client-side handle for a streaming Pull call.
type RegistryPullClient interface {
	Recv() (*PullChunk, error)
	grpc.ClientStream
}

type registryPullClient struct {
	grpc.ClientStream
}

func (x *registryPullClient) Recv() (*PullChunk, error) {
	chunk := new(PullChunk)
	if err := x.ClientStream.RecvMsg(chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

func (c *RegistryClient) Pull(ctx context.Context, req *PullRequest) (RegistryPullClient, error) {
	stream, err := c.cc.NewStream(ctx, &registryServiceDesc.Streams[0], "/noctiforge.registry.Registry/Pull", grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	x := &registryPullClient{stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
