// Package workspace owns the on-disk clone directory for one preview
// deployment namespace.
package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/tushar5526/sarthi/internal/filesystem"
	"github.com/tushar5526/sarthi/internal/logger"
)

// ErrCloneFailed is returned when the git clone subprocess exits non-zero.
var ErrCloneFailed = errors.New("workspace: git clone failed")

// Workspace clones and removes a namespace's project source under a mount
// root.
type Workspace struct {
	mountRoot string
	log       *logger.Logger
}

// New returns a Workspace rooted at mountRoot.
func New(mountRoot string, log *logger.Logger) *Workspace {
	return &Workspace{mountRoot: mountRoot, log: log}
}

// Path returns the clone directory for namespace, without creating it.
func (w *Workspace) Path(namespace string) string {
	return filepath.Join(w.mountRoot, namespace)
}

// Prepare removes any existing clone directory for namespace, then clones
// branch of gitURL into it with `git clone -b {branch} {url} {path}`.
func (w *Workspace) Prepare(ctx context.Context, namespace, gitURL, branch string) (string, error) {
	path, err := filesystem.VerifyAndSanitizePath(w.Path(namespace), w.mountRoot)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCloneFailed, err)
	}

	if err := os.RemoveAll(path); err != nil {
		return "", fmt.Errorf("%w: removing existing clone dir: %w", ErrCloneFailed, err)
	}

	//nolint:gosec // branch, gitURL and path are server-constructed from validated request fields
	cmd := exec.CommandContext(ctx, "git", "clone", "-b", branch, gitURL, path)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		w.log.Error("git clone failed", logger.ErrAttr(err), "stderr", stderr.String(), "namespace", namespace)

		return "", fmt.Errorf("%w: %w", ErrCloneFailed, err)
	}

	return path, nil
}

// Remove idempotently deletes the clone directory for namespace. Absence is
// not an error.
func (w *Workspace) Remove(namespace string) error {
	path, err := filesystem.VerifyAndSanitizePath(w.Path(namespace), w.mountRoot)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return os.RemoveAll(path)
}
