package worker

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/ow1lab/noctiforge-runner/pkg/types"
)

func TestWaitReadySucceedsOnListeningSocket(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "app.sock")

	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	if err := waitReady(context.Background(), "unix://"+sock); err != nil {
		t.Fatalf("waitReady: %v", err)
	}
}

func TestWaitReadyTimesOutWhenNothingListens(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "ghost.sock")

	err := waitReady(context.Background(), "unix://"+sock)
	if err == nil {
		t.Fatal("expected a readiness timeout error")
	}
	prob, ok := err.(*types.Problem)
	if !ok || prob.Type != types.ProblemStartup {
		t.Fatalf("expected a worker/startup problem, got %#v", err)
	}
}
