package proto

import (
	"context"

	"google.golang.org/grpc"
)

// InvokeRequest is handler.Invoke's request, sent over the UNIX socket
// to a warm handler process (§6).
type InvokeRequest struct {
	Payload *string `json:"payload,omitempty"`
}

// InvokeResponse is handler.Invoke's response.
type InvokeResponse struct {
	Output string `json:"output"`
}

// FunctionRunnerClient calls a handler process's single RPC. There is
// no server side in this module: the handler process living inside the
// container implements it.
type FunctionRunnerClient struct {
	cc *grpc.ClientConn
}

func NewFunctionRunnerClient(cc *grpc.ClientConn) *FunctionRunnerClient {
	return &FunctionRunnerClient{cc: cc}
}

func (c *FunctionRunnerClient) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResponse, error) {
	out := new(InvokeResponse)
	err := c.cc.Invoke(ctx, "/noctiforge.handler.FunctionRunner/Invoke", req, out, grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}
