package worker

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ow1lab/noctiforge-runner/api/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// grpcInvoker dials a fresh connection to a handler's UNIX socket for
// each call. Handlers are long-lived but low-traffic processes inside
// a single-purpose container, so a per-call dial keeps this side of
// the bridge simple; the expensive part (process startup) already
// happened in container.go.
type grpcInvoker struct{}

func (grpcInvoker) invoke(ctx context.Context, url string, body []byte) ([]byte, error) {
	addr := strings.TrimPrefix(url, "unix://")

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, target string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", target)
		}),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("dial handler: %w", err)
	}
	defer conn.Close()

	client := proto.NewFunctionRunnerClient(conn)
	payload := string(body)
	resp, err := client.Invoke(ctx, &proto.InvokeRequest{Payload: &payload})
	if err != nil {
		return nil, err
	}
	return []byte(resp.Output), nil
}
