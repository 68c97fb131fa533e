package worker

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ow1lab/noctiforge-runner/api/proto"
	"github.com/ow1lab/noctiforge-runner/pkg/log"
	"github.com/ow1lab/noctiforge-runner/pkg/metrics"
	"github.com/ow1lab/noctiforge-runner/pkg/types"
)

// puller performs the streaming pull of one digest's tar bytes. The
// production implementation wraps *proto.RegistryClient; tests supply
// an in-memory fake so extraction and caching can be verified without
// a live gRPC server.
type puller interface {
	pull(ctx context.Context, digest string) ([]byte, error)
}

// Registry is the registry client (C3): content-addressed caching in
// front of a streaming tar pull.
type Registry struct {
	paths Paths
	p     puller
}

// NewRegistry binds a registry client to its pull endpoint and the
// worker root where fetched artifacts are cached.
func NewRegistry(paths Paths, client *proto.RegistryClient) *Registry {
	return &Registry{paths: paths, p: grpcPuller{client}}
}

// newRegistryWithPuller is the test seam for NewRegistry.
func newRegistryWithPuller(paths Paths, p puller) *Registry {
	return &Registry{paths: paths, p: p}
}

type grpcPuller struct {
	client *proto.RegistryClient
}

func (g grpcPuller) pull(ctx context.Context, digest string) ([]byte, error) {
	stream, err := g.client.Pull(ctx, &proto.PullRequest{Digest: digest})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		buf.Write(chunk.Data)
	}
	return buf.Bytes(), nil
}

// Fetch implements §4.3: return the cached artifact directory for
// digest if present, otherwise stream-pull the tar, extract it, and
// cache the result. Extraction either succeeds in full or leaves no
// artifact directory behind.
func (r *Registry) Fetch(ctx context.Context, digest string) (string, error) {
	artifactDir := r.paths.ArtifactDir(digest)
	if _, err := os.Stat(artifactDir); err == nil {
		return artifactDir, nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.FetchDuration)

	l := log.WithDigest(digest)
	l.Info().Msg("fetching artifact")

	data, err := r.p.pull(ctx, digest)
	if err != nil {
		return "", types.NewProblem(types.ProblemFetch, fmt.Sprintf("pull %s: %v", digest, err), problemExt(digest, ""))
	}

	if err := extractTar(data, artifactDir); err != nil {
		_ = os.RemoveAll(artifactDir)
		return "", types.NewProblem(types.ProblemFetch, fmt.Sprintf("extract %s: %v", digest, err), problemExt(digest, ""))
	}

	return artifactDir, nil
}

// extractTar unpacks a tar archive into a fresh directory at dst,
// created atomically via a sibling temp directory renamed into place
// once every entry has been written successfully. An entry named "app"
// at the archive root is rejected: it would collide with the rootfs/app
// mount point container.go materializes from this artifact (§9 open
// question, resolved in favor of rejecting at fetch time).
func extractTar(data []byte, dst string) error {
	tmp := dst + ".partial"
	if err := os.RemoveAll(tmp); err != nil {
		return err
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		name := filepath.Clean(hdr.Name)
		if name == "." {
			continue
		}
		if strings.HasPrefix(name, "..") {
			return fmt.Errorf("tar entry escapes archive root: %q", hdr.Name)
		}
		if name == "app" || strings.HasPrefix(name, "app"+string(filepath.Separator)) {
			return errors.New("artifact contains a reserved top-level \"app\" entry")
		}

		target := filepath.Join(tmp, name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := writeTarFile(tr, target, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			// symlinks, devices and other entry types have no place in a
			// handler artifact tree; skip rather than fail the whole pull.
		}
	}

	return os.Rename(tmp, dst)
}

func writeTarFile(r io.Reader, target string, mode os.FileMode) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm()|0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}
