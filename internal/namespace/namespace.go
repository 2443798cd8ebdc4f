// Package namespace derives the deterministic identity of a preview
// deployment from the raw project and branch strings in a request.
package namespace

import (
	"crypto/md5" //nolint:gosec // used as a collision-tolerant identity, not a cryptographic secret
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	maxProjectLen = 10
	maxBranchLen  = 20
	hashLen       = 10
)

// ErrInvalidInput is returned when a raw project or branch name normalizes
// to the empty string.
var ErrInvalidInput = errors.New("namespace: project or branch is empty after normalization")

// Identity is the normalized, deterministic identity of one preview
// deployment, derived purely from the raw project and branch strings.
type Identity struct {
	Project   string
	Branch    string
	Hash      string
	Namespace string
}

// Derive normalizes the raw project and branch strings into an Identity.
//
// Normalization is total and stable: two distinct raw pairs may collide on
// Hash, and the system treats Namespace equality as identity.
func Derive(rawProject, rawBranch string) (Identity, error) {
	project := normalize(rawProject, maxProjectLen)
	branch := normalize(rawBranch, maxBranchLen)

	if project == "" || branch == "" {
		return Identity{}, ErrInvalidInput
	}

	hash := shortHash(project, branch)

	return Identity{
		Project:   project,
		Branch:    branch,
		Hash:      hash,
		Namespace: fmt.Sprintf("%s_%s_%s", project, branch, hash),
	}, nil
}

// normalize lower-cases s, strips every non-alphabetic rune, and truncates
// to maxLen.
func normalize(s string, maxLen int) string {
	var b strings.Builder

	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}

	out := b.String()
	if len(out) > maxLen {
		out = out[:maxLen]
	}

	return out
}

// shortHash returns the first hashLen hex characters of the MD5 digest of
// "project:branch".
func shortHash(project, branch string) string {
	sum := md5.Sum([]byte(project + ":" + branch)) //nolint:gosec

	return hex.EncodeToString(sum[:])[:hashLen]
}
