package worker

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/ow1lab/noctiforge-runner/pkg/metrics"
	"github.com/ow1lab/noctiforge-runner/pkg/types"
)

const (
	readinessInterval = 10 * time.Millisecond
	readinessCeiling  = 3000 * time.Millisecond
)

// waitReady implements the readiness prober (C8): poll-connect a handler
// URL every readinessInterval up to readinessCeiling, succeeding on the
// first accepted connection. It never issues an invocation — accepting
// the transport is the readiness signal.
func waitReady(ctx context.Context, url string) error {
	dialer := net.Dialer{}
	addr := strings.TrimPrefix(url, "unix://")

	deadline := time.Now().Add(readinessCeiling)
	attempts := 0

	for {
		attempts++
		conn, err := dialer.DialContext(ctx, "unix", addr)
		if err == nil {
			conn.Close()
			metrics.ReadinessAttempts.Observe(float64(attempts))
			return nil
		}

		if time.Now().After(deadline) {
			metrics.ReadinessAttempts.Observe(float64(attempts))
			return types.NewProblem(types.ProblemStartup, "handler did not become ready within 3000ms", map[string]string{"url": url})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readinessInterval):
		}
	}
}
