// Package filesystem guards the one place sarthi turns untrusted request
// data into a filesystem path: a preview namespace's clone directory under
// internal/workspace's mount root.
package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidFilePath and ErrPathTraversal are returned by
// VerifyAndSanitizePath; ErrPathTraversal specifically flags a namespace
// whose derived clone path resolves outside the configured mount root.
var (
	ErrInvalidFilePath = errors.New("invalid file path")
	ErrPathTraversal   = errors.New("path traversal detected")
)

// VerifyAndSanitizePath resolves path to an absolute form and rejects it
// unless it falls under trustedRoot. internal/workspace calls this with a
// namespace-derived clone directory and its configured mount root before
// ever removing or cloning into that directory, so a namespace value that
// smuggles a "../" segment cannot walk the clone outside the mount.
func VerifyAndSanitizePath(path, trustedRoot string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidFilePath, err)
	}

	trustedRoot = filepath.Clean(trustedRoot) + string(os.PathSeparator)

	if !strings.HasPrefix(absPath, trustedRoot) {
		return absPath, ErrPathTraversal
	}

	return absPath, nil
}
