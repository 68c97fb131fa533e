package proto

import (
	"context"

	"google.golang.org/grpc"
)

// ControlPlaneClient resolves action names to digests (§6
// control-plane.GetDigestByName) and, for completeness of the mapping
// contract, can publish them (SetDigestToName) though the worker never
// calls that half.
type ControlPlaneClient struct {
	cc *grpc.ClientConn
}

func NewControlPlaneClient(cc *grpc.ClientConn) *ControlPlaneClient {
	return &ControlPlaneClient{cc: cc}
}

func (c *ControlPlaneClient) GetDigestByName(ctx context.Context, req *GetDigestByNameRequest) (*GetDigestByNameResponse, error) {
	out := new(GetDigestByNameResponse)
	if err := c.cc.Invoke(ctx, "/noctiforge.controlplane.ControlPlane/GetDigestByName", req, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlPlaneClient) SetDigestToName(ctx context.Context, req *SetDigestToNameRequest) (*SetDigestToNameResponse, error) {
	out := new(SetDigestToNameResponse)
	if err := c.cc.Invoke(ctx, "/noctiforge.controlplane.ControlPlane/SetDigestToName", req, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// ControlPlaneServer is implemented by test fakes that stand in for the
// external control plane.
type ControlPlaneServer interface {
	GetDigestByName(context.Context, *GetDigestByNameRequest) (*GetDigestByNameResponse, error)
	SetDigestToName(context.Context, *SetDigestToNameRequest) (*SetDigestToNameResponse, error)
}

func RegisterControlPlaneServer(s *grpc.Server, srv ControlPlaneServer) {
	s.RegisterService(&controlPlaneServiceDesc, srv)
}

func controlPlaneGetDigestByNameHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetDigestByNameRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlPlaneServer).GetDigestByName(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/noctiforge.controlplane.ControlPlane/GetDigestByName"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlPlaneServer).GetDigestByName(ctx, req.(*GetDigestByNameRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func controlPlaneSetDigestToNameHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SetDigestToNameRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlPlaneServer).SetDigestToName(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/noctiforge.controlplane.ControlPlane/SetDigestToName"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlPlaneServer).SetDigestToName(ctx, req.(*SetDigestToNameRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var controlPlaneServiceDesc = grpc.ServiceDesc{
	ServiceName: "noctiforge.controlplane.ControlPlane",
	HandlerType: (*ControlPlaneServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetDigestByName", Handler: controlPlaneGetDigestByNameHandler},
		{MethodName: "SetDigestToName", Handler: controlPlaneSetDigestToNameHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "controlplane.proto",
}
