package runtime

import (
	"context"
	"testing"

	"github.com/ow1lab/noctiforge-runner/pkg/types"
)

func TestFakeRuntimeBuildStartDelete(t *testing.T) {
	ctx := context.Background()
	rt := NewFakeRuntime()

	c, err := rt.Build(ctx, "abc123", "/state", "/run/abc123")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rt.Bundle(c) != "/run/abc123" {
		t.Fatalf("Bundle() = %q", rt.Bundle(c))
	}

	status, err := rt.Status(ctx, c)
	if err != nil || status != types.ContainerStatusCreated {
		t.Fatalf("Status() = %v, %v", status, err)
	}

	if err := rt.Start(ctx, c); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status, _ = rt.Status(ctx, c)
	if status != types.ContainerStatusRunning {
		t.Fatalf("Status() after Start = %v", status)
	}

	if err := rt.Delete(ctx, c); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if rt.Exists("abc123") {
		t.Fatal("container still tracked after Delete")
	}

	// delete is idempotent
	if err := rt.Delete(ctx, c); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if rt.DeleteCount("abc123") != 2 {
		t.Fatalf("DeleteCount = %d, want 2", rt.DeleteCount("abc123"))
	}
}

func TestFakeRuntimeLoadMissing(t *testing.T) {
	rt := NewFakeRuntime()
	if _, err := rt.Load(context.Background(), "/state", "missing"); err != ErrNotFound {
		t.Fatalf("Load() err = %v, want ErrNotFound", err)
	}
}

func TestFakeRuntimeBuildFailure(t *testing.T) {
	rt := NewFakeRuntime()
	rt.FailBuild = errTest("boom")

	if _, err := rt.Build(context.Background(), "x", "/state", "/run/x"); err == nil {
		t.Fatal("expected Build to fail")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
