package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ow1lab/noctiforge-runner/pkg/runtime"
)

func TestReaperSweepEvictsOnlyAgedEntries(t *testing.T) {
	root := t.TempDir()
	paths := NewPaths(root)
	rt := runtime.NewFakeRuntime()
	inv := NewInvocations(paths, rt)

	fresh := testDigest("20")[:16]
	stale := testDigest("21")[:16]

	if _, err := rt.Build(context.Background(), fresh, paths.StateDir(), filepath.Join(paths.RunDir(), fresh)); err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Build(context.Background(), stale, paths.StateDir(), filepath.Join(paths.RunDir(), stale)); err != nil {
		t.Fatal(err)
	}

	inv.Insert(fresh, "unix:///fresh.sock")
	inv.Insert(stale, "unix:///stale.sock")

	// Age the stale entry past the TTL without touching it.
	entry, _ := inv.Peek(stale)
	entry.LastAccessed = time.Now().Add(-time.Hour)
	inv.table[stale].LastAccessed = entry.LastAccessed

	r := NewReaper(inv, time.Second, 30*time.Second)
	r.sweep(context.Background())

	if _, ok := inv.Peek(fresh); !ok {
		t.Fatal("expected fresh entry to survive the sweep")
	}
	if _, ok := inv.Peek(stale); ok {
		t.Fatal("expected stale entry to be evicted")
	}
}
