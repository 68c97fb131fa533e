package worker

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckUnprivilegedUserNamespacesMissingFileIsPermissive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unprivileged_userns_clone")
	if err := checkUnprivilegedUserNamespacesAt(path); err != nil {
		t.Fatalf("expected no error when sysctl file is absent, got %v", err)
	}
}

func TestCheckUnprivilegedUserNamespacesDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unprivileged_userns_clone")
	if err := os.WriteFile(path, []byte("0\n"), 0o644); err != nil {
		t.Fatalf("write sysctl file: %v", err)
	}
	if err := checkUnprivilegedUserNamespacesAt(path); err == nil {
		t.Fatal("expected error when unprivileged_userns_clone=0")
	}
}

func TestCheckUnprivilegedUserNamespacesEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unprivileged_userns_clone")
	if err := os.WriteFile(path, []byte("1\n"), 0o644); err != nil {
		t.Fatalf("write sysctl file: %v", err)
	}
	if err := checkUnprivilegedUserNamespacesAt(path); err != nil {
		t.Fatalf("expected no error when unprivileged_userns_clone=1, got %v", err)
	}
}

func TestResolveWorkerRootUsesXDGRuntimeDir(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", base)

	root, err := ResolveWorkerRoot()
	if err != nil {
		t.Fatalf("ResolveWorkerRoot: %v", err)
	}
	want := filepath.Join(base, "noctiforge")
	if root != want {
		t.Fatalf("unexpected root %q, want %q", root, want)
	}

	info, err := os.Stat(root)
	if err != nil {
		t.Fatalf("stat root: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("expected root to be a directory")
	}
}
