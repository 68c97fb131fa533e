package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// userNamespacesSysctl is the kernel knob gating unprivileged user
// namespace creation on most distributions (§9: "Rootless by design").
// A value of 0 means rootless containers cannot start at all; some
// kernels omit the file entirely, which is treated as permissive since
// no such gate exists to check.
const userNamespacesSysctl = "/proc/sys/kernel/unprivileged_userns_clone"

// CheckUnprivilegedUserNamespaces implements §9's hard requirement:
// refuse to run if the kernel does not permit unprivileged user
// namespaces, since every container this worker builds appends a fresh
// user namespace (§4.2) and relies on it for rootless operation.
func CheckUnprivilegedUserNamespaces() error {
	return checkUnprivilegedUserNamespacesAt(userNamespacesSysctl)
}

func checkUnprivilegedUserNamespacesAt(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("check unprivileged user namespaces: %w", err)
	}

	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("check unprivileged user namespaces: parse %s: %w", path, err)
	}
	if v == 0 {
		return fmt.Errorf("unprivileged user namespaces are disabled (%s=0); rootless containers cannot start", path)
	}
	return nil
}

// ResolveWorkerRoot implements §3's worker root path rule: prefer a
// subdirectory of $XDG_RUNTIME_DIR/noctiforge if writable, else fall
// back to /run/user/{uid}/noctiforge. The directory is created with
// mode 0700. Fatal (returns an error) if neither is usable.
func ResolveWorkerRoot() (string, error) {
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		root := filepath.Join(xdg, "noctiforge")
		if err := os.MkdirAll(root, 0o700); err == nil {
			return root, nil
		}
	}

	root := filepath.Join("/run/user", fmt.Sprintf("%d", os.Getuid()), "noctiforge")
	if err := os.MkdirAll(root, 0o700); err != nil {
		return "", fmt.Errorf("worker root: neither XDG_RUNTIME_DIR nor %s is writable: %w", root, err)
	}
	return root, nil
}

// SealExecutable implements §4.11's executable-sealing step: read the
// running binary's file into memory and lock that in-memory copy, then
// chmod the file to 0500 so it is no longer writable. Best-effort on
// Mlock (not every kernel/cgroup configuration grants CAP_IPC_LOCK), but
// chmod failure is fatal.
func SealExecutable() error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("seal: resolve executable path: %w", err)
	}

	data, err := os.ReadFile(self)
	if err != nil {
		return fmt.Errorf("seal: read executable: %w", err)
	}
	if len(data) > 0 {
		_ = unix.Mlock(data) // best-effort: missing CAP_IPC_LOCK is not fatal
	}

	if err := os.Chmod(self, 0o500); err != nil {
		return fmt.Errorf("seal: chmod executable: %w", err)
	}
	return nil
}
