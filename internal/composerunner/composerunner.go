// Package composerunner drives `docker compose` against a rewritten
// compose file.
package composerunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/tushar5526/sarthi/internal/logger"
)

// ErrComposeUpFailed is returned when `docker compose up -d --build` exits
// non-zero.
var ErrComposeUpFailed = errors.New("composerunner: docker compose up failed")

// Runner drives docker compose with Dir set to a namespace's clone
// directory.
type Runner struct {
	log *logger.Logger
}

// New returns a Runner.
func New(log *logger.Logger) *Runner {
	return &Runner{log: log}
}

// Up runs `docker compose up -d --build` in cloneDir. Must run after the
// compose file has been rewritten.
func (r *Runner) Up(ctx context.Context, cloneDir string) error {
	cmd := exec.CommandContext(ctx, "docker", "compose", "up", "-d", "--build")
	cmd.Dir = cloneDir

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		r.log.Error("docker compose up failed", logger.ErrAttr(err), "stderr", stderr.String(), "dir", cloneDir)

		return fmt.Errorf("%w: %s: %w", ErrComposeUpFailed, strings.TrimSpace(stderr.String()), err)
	}

	return nil
}

// Down runs `docker compose down -v` in cloneDir. If cloneDir no longer
// exists this is a no-op that logs and returns success, since teardown must
// be idempotent.
func (r *Runner) Down(ctx context.Context, cloneDir string) error {
	if _, err := os.Stat(cloneDir); errors.Is(err, os.ErrNotExist) {
		r.log.Info("clone directory already removed, skipping compose down", "dir", cloneDir)

		return nil
	}

	cmd := exec.CommandContext(ctx, "docker", "compose", "down", "-v")
	cmd.Dir = cloneDir

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		r.log.Warn("docker compose down failed", logger.ErrAttr(err), "stderr", stderr.String(), "dir", cloneDir)

		return fmt.Errorf("composerunner: docker compose down: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	return nil
}

// IsPortConflict reports whether err's stderr indicates the compose up
// failure was caused by a port already in use, used by the deployer's
// bounded port-conflict retry.
func IsPortConflict(err error) bool {
	msg := err.Error()

	return strings.Contains(msg, "address already in use") || strings.Contains(msg, "port is already allocated")
}
