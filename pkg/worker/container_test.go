package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ow1lab/noctiforge-runner/pkg/runtime"
	"github.com/ow1lab/noctiforge-runner/pkg/types"
)

func writeArtifact(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bootstrap"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
}

func testDigest(suffix string) string {
	base := strings.Repeat("a", 64-len(suffix))
	return base + suffix
}

func TestNewContainerBuildsAndStarts(t *testing.T) {
	root := t.TempDir()
	paths := NewPaths(root)
	rt := runtime.NewFakeRuntime()

	artifact := filepath.Join(root, "pkgs", testDigest("01"))
	writeArtifact(t, artifact)

	digest := testDigest("01")
	c, url, err := newContainer(context.Background(), paths, rt, SysUser{UID: 1000, GID: 1000}, digest, artifact)
	if err != nil {
		t.Fatalf("newContainer: %v", err)
	}
	if c.InstanceID != digest[:16] {
		t.Fatalf("unexpected instance id %q", c.InstanceID)
	}
	if !strings.HasSuffix(url, "app.sock") {
		t.Fatalf("unexpected handler url %q", url)
	}

	if _, err := os.Stat(filepath.Join(paths.BundleDir(digest[:16]), "config.json")); err != nil {
		t.Fatalf("config.json missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(paths.BundleDir(digest[:16]), "rootfs", "app", "bootstrap")); err != nil {
		t.Fatalf("rootfs/app/bootstrap missing: %v", err)
	}
}

func TestNewContainerReusesOnMatchingDigest(t *testing.T) {
	root := t.TempDir()
	paths := NewPaths(root)
	rt := runtime.NewFakeRuntime()

	digest := testDigest("02")
	artifact := filepath.Join(root, "pkgs", digest)
	writeArtifact(t, artifact)

	ctx := context.Background()
	_, _, err := newContainer(ctx, paths, rt, SysUser{UID: 1, GID: 1}, digest, artifact)
	if err != nil {
		t.Fatalf("first newContainer: %v", err)
	}

	c2, _, err := newContainer(ctx, paths, rt, SysUser{UID: 1, GID: 1}, digest, artifact)
	if err != nil {
		t.Fatalf("second newContainer (reuse): %v", err)
	}
	if c2.InstanceID != digest[:16] {
		t.Fatalf("unexpected instance id on reuse: %q", c2.InstanceID)
	}
}

func TestNewContainerCollisionWithDifferentDigestFails(t *testing.T) {
	root := t.TempDir()
	paths := NewPaths(root)
	rt := runtime.NewFakeRuntime()

	digestA := strings.Repeat("a", 64)
	artifactA := filepath.Join(root, "pkgs", digestA)
	writeArtifact(t, artifactA)

	ctx := context.Background()
	if _, _, err := newContainer(ctx, paths, rt, SysUser{UID: 1, GID: 1}, digestA, artifactA); err != nil {
		t.Fatalf("first newContainer: %v", err)
	}

	digestB := digestA[:16] + strings.Repeat("b", 48)
	artifactB := filepath.Join(root, "pkgs", digestB)
	writeArtifact(t, artifactB)

	_, _, err := newContainer(ctx, paths, rt, SysUser{UID: 1, GID: 1}, digestB, artifactB)
	if err == nil {
		t.Fatal("expected a collision error, got nil")
	}
	prob, ok := err.(*types.Problem)
	if !ok {
		t.Fatalf("expected *types.Problem, got %T", err)
	}
	if prob.Type != types.ProblemContainer {
		t.Fatalf("unexpected problem type: %v", prob.Type)
	}
}

func TestCleanupContainerRemovesBundle(t *testing.T) {
	root := t.TempDir()
	paths := NewPaths(root)
	rt := runtime.NewFakeRuntime()

	digest := testDigest("03")
	artifact := filepath.Join(root, "pkgs", digest)
	writeArtifact(t, artifact)

	ctx := context.Background()
	c, _, err := newContainer(ctx, paths, rt, SysUser{UID: 1, GID: 1}, digest, artifact)
	if err != nil {
		t.Fatalf("newContainer: %v", err)
	}

	if err := cleanupContainer(ctx, paths, rt, c, c.InstanceID); err != nil {
		t.Fatalf("cleanupContainer: %v", err)
	}
	if _, err := os.Stat(paths.BundleDir(c.InstanceID)); !os.IsNotExist(err) {
		t.Fatalf("expected bundle dir removed, stat err = %v", err)
	}
}
