package worker

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ow1lab/noctiforge-runner/pkg/types"
)

type fakePuller struct {
	data []byte
	err  error
	hits int
}

func (f *fakePuller) pull(ctx context.Context, digest string) ([]byte, error) {
	f.hits++
	return f.data, f.err
}

func buildTar(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range entries {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRegistryFetchExtractsAndCaches(t *testing.T) {
	root := t.TempDir()
	paths := NewPaths(root)
	data := buildTar(t, map[string]string{"bootstrap": "#!/bin/sh\n"})
	p := &fakePuller{data: data}
	reg := newRegistryWithPuller(paths, p)

	digest := "deadbeef00000000000000000000000000000000000000000000000000ff"
	dir, err := reg.Fetch(context.Background(), digest)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if dir != paths.ArtifactDir(digest) {
		t.Fatalf("unexpected artifact dir: %s", dir)
	}
	if _, err := os.Stat(filepath.Join(dir, "bootstrap")); err != nil {
		t.Fatalf("expected extracted file: %v", err)
	}

	// Second fetch must hit the cache, not the puller.
	if _, err := reg.Fetch(context.Background(), digest); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if p.hits != 1 {
		t.Fatalf("expected exactly one pull, got %d", p.hits)
	}
}

func TestRegistryFetchRejectsNestedApp(t *testing.T) {
	root := t.TempDir()
	paths := NewPaths(root)
	data := buildTar(t, map[string]string{"app/main": "x"})
	p := &fakePuller{data: data}
	reg := newRegistryWithPuller(paths, p)

	digest := "0000000000000000000000000000000000000000000000000000000000aa"
	_, err := reg.Fetch(context.Background(), digest)
	if err == nil {
		t.Fatal("expected an error for a nested app/ entry")
	}
	prob, ok := err.(*types.Problem)
	if !ok || prob.Type != types.ProblemFetch {
		t.Fatalf("expected a worker/fetch problem, got %#v", err)
	}
	if _, statErr := os.Stat(paths.ArtifactDir(digest)); !os.IsNotExist(statErr) {
		t.Fatalf("expected no artifact directory left behind, stat err = %v", statErr)
	}
}

func TestRegistryFetchCleansUpOnPullError(t *testing.T) {
	root := t.TempDir()
	paths := NewPaths(root)
	p := &fakePuller{err: context.DeadlineExceeded}
	reg := newRegistryWithPuller(paths, p)

	digest := "1111111111111111111111111111111111111111111111111111111111bb"
	_, err := reg.Fetch(context.Background(), digest)
	if err == nil {
		t.Fatal("expected pull error to propagate")
	}
	if _, statErr := os.Stat(paths.ArtifactDir(digest)); !os.IsNotExist(statErr) {
		t.Fatalf("expected no artifact directory left behind, stat err = %v", statErr)
	}
}
