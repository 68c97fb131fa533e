package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ow1lab/noctiforge-runner/pkg/log"
	"github.com/ow1lab/noctiforge-runner/pkg/metrics"
	"github.com/ow1lab/noctiforge-runner/pkg/runtime"
	"github.com/ow1lab/noctiforge-runner/pkg/types"
)

// digestMarkerName records, inside a bundle directory, the full digest
// that produced it — read back on a bundle-path collision to decide
// between reuse (same digest, different instance race) and a genuine
// name clash (different digest, same 16-hex prefix).
const digestMarkerName = ".digest"

// newContainer implements the orchestrator's container-creation policy
// (C5 §4.5 "On new"): build the bundle, write config.json, materialize
// rootfs/app from the artifact directory, and build+start the
// container. On a bundle-directory collision it resolves per the
// instance-id collision design: reuse on matching digest, fail as a
// container problem otherwise — it never silently overwrites.
func newContainer(ctx context.Context, paths Paths, rt runtime.Runtime, sysUser SysUser, digest, artifactDir string) (*runtime.Container, string, error) {
	instanceID := digest[:16]
	bundleDir := paths.BundleDir(instanceID)

	if _, err := os.Stat(bundleDir); err == nil {
		return reuseContainer(ctx, paths, rt, bundleDir, instanceID, digest)
	}

	l := log.WithDigest(digest).With().Str("instance_id", instanceID).Logger()
	l.Info().Msg("building container")

	if err := os.MkdirAll(bundleDir, 0o700); err != nil {
		return nil, "", types.NewProblem(types.ProblemContainer, fmt.Sprintf("create bundle dir: %v", err), problemExt(digest, ""))
	}

	if err := os.WriteFile(filepath.Join(bundleDir, digestMarkerName), []byte(digest), 0o600); err != nil {
		_ = os.RemoveAll(bundleDir)
		return nil, "", types.NewProblem(types.ProblemContainer, fmt.Sprintf("write digest marker: %v", err), problemExt(digest, ""))
	}

	spec := BuildRootlessSpec(sysUser)
	if err := writeConfig(bundleDir, spec); err != nil {
		_ = os.RemoveAll(bundleDir)
		return nil, "", types.NewProblem(types.ProblemContainer, fmt.Sprintf("write config.json: %v", err), problemExt(digest, ""))
	}

	rootfs := filepath.Join(bundleDir, "rootfs")
	if err := materializeRootfs(artifactDir, rootfs); err != nil {
		_ = os.RemoveAll(bundleDir)
		metrics.ContainersCreatedTotal.WithLabelValues("error").Inc()
		return nil, "", types.NewProblem(types.ProblemContainer, fmt.Sprintf("materialize rootfs: %v", err), problemExt(digest, ""))
	}

	c, err := rt.Build(ctx, instanceID, paths.StateDir(), bundleDir)
	if err != nil {
		_ = os.RemoveAll(bundleDir)
		metrics.ContainersCreatedTotal.WithLabelValues("error").Inc()
		return nil, "", types.NewProblem(types.ProblemContainer, fmt.Sprintf("build container: %v", err), problemExt(digest, ""))
	}
	if err := rt.Start(ctx, c); err != nil {
		_ = rt.Delete(ctx, c)
		_ = os.RemoveAll(bundleDir)
		metrics.ContainersCreatedTotal.WithLabelValues("error").Inc()
		return nil, "", types.NewProblem(types.ProblemContainer, fmt.Sprintf("start container: %v", err), problemExt(digest, ""))
	}

	metrics.ContainersCreatedTotal.WithLabelValues("ok").Inc()
	return c, handlerURL(rt.Bundle(c)), nil
}

func reuseContainer(ctx context.Context, paths Paths, rt runtime.Runtime, bundleDir, instanceID, digest string) (*runtime.Container, string, error) {
	marker, err := os.ReadFile(filepath.Join(bundleDir, digestMarkerName))
	if err != nil || string(marker) != digest {
		return nil, "", types.NewProblem(types.ProblemContainer,
			"bundle directory collision with a different digest", problemExt(digest, instanceID))
	}

	l := log.WithInstanceID(instanceID)
	l.Warn().Msg("bundle directory already existed for this digest, reusing")

	c, err := loadAndEnsureRunning(ctx, paths, rt, instanceID)
	if err != nil {
		return nil, "", types.NewProblem(types.ProblemContainer, fmt.Sprintf("reuse container: %v", err), problemExt(digest, instanceID))
	}
	return c, handlerURL(rt.Bundle(c)), nil
}

// loadAndEnsureRunning implements C5 §4.5 "On load": rehydrate the
// handle, then start it if it isn't already running.
func loadAndEnsureRunning(ctx context.Context, paths Paths, rt runtime.Runtime, instanceID string) (*runtime.Container, error) {
	c, err := rt.Load(ctx, paths.StateDir(), instanceID)
	if err != nil {
		return nil, err
	}
	status, err := rt.Status(ctx, c)
	if err != nil {
		return nil, err
	}
	if status != types.ContainerStatusRunning {
		if err := rt.Start(ctx, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// cleanupContainer implements C5 §4.5 "On cleanup": delete the
// container, then recursively remove the bundle directory.
func cleanupContainer(ctx context.Context, paths Paths, rt runtime.Runtime, c *runtime.Container, instanceID string) error {
	if err := rt.Delete(ctx, c); err != nil {
		return err
	}
	metrics.ContainersDeletedTotal.WithLabelValues("cleanup").Inc()
	return removeBundleDir(paths, instanceID)
}

func removeBundleDir(paths Paths, instanceID string) error {
	return os.RemoveAll(paths.BundleDir(instanceID))
}

func handlerURL(bundleDir string) string {
	return "unix://" + filepath.Join(bundleDir, "rootfs", "run", "app.sock")
}

func writeConfig(bundleDir string, spec interface{}) error {
	f, err := os.OpenFile(filepath.Join(bundleDir, "config.json"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(spec)
}

// materializeRootfs creates rootfs/, copy-trees the artifact directory
// into rootfs/app/, and creates rootfs/run/ for the handler's socket.
func materializeRootfs(artifactDir, rootfs string) error {
	appDir := filepath.Join(rootfs, "app")
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(rootfs, "run"), 0o755); err != nil {
		return err
	}
	return copyTree(artifactDir, appDir)
}

func copyTree(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := os.MkdirAll(dstPath, 0o755); err != nil {
				return err
			}
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}

		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func problemExt(digest, instanceID string) map[string]string {
	ext := map[string]string{"digest": digest}
	if instanceID != "" {
		ext["instance_id"] = instanceID
	}
	return ext
}
