package filesystem

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestVerifyAndSanitizePath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		path        string
		trustedRoot string
		expected    string
		expectError error
	}{
		{
			name:        "namespace clone dir under mount root",
			path:        "/var/lib/sarthi/previews/p_main_abc1234567",
			trustedRoot: "/var/lib/sarthi/previews",
			expected:    "/var/lib/sarthi/previews/p_main_abc1234567",
			expectError: nil,
		},
		{
			name:        "sibling mount escapes the preview root",
			path:        "/var/lib/sarthi/other",
			trustedRoot: "/var/lib/sarthi/previews",
			expected:    "/var/lib/sarthi/other",
			expectError: ErrPathTraversal,
		},
		{
			name:        "absolute traversal out of the preview root",
			path:        "/var/lib/sarthi/previews/../../etc/passwd",
			trustedRoot: "/var/lib/sarthi/previews",
			expected:    "/var/lib/sarthi/previews/../../etc/passwd",
			expectError: ErrPathTraversal,
		},
		{
			name:        "relative traversal in a namespace value",
			path:        "../../etc/passwd",
			trustedRoot: "/var/lib/sarthi/previews",
			expected:    "../../etc/passwd",
			expectError: ErrPathTraversal,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tc.expected, _ = filepath.Abs(tc.expected)
			result, err := VerifyAndSanitizePath(tc.path, tc.trustedRoot)

			if result != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, result)
			}

			if err != nil && !errors.Is(err, tc.expectError) {
				t.Fatalf("expected error %v, got %v", tc.expectError, err)
			}
		})
	}
}

// TestVerifyAndSanitizePath_WorkspaceNamespaceUse mirrors how
// internal/workspace calls this package: joining a namespace onto a mount
// root before any clone or removal, so a malicious namespace value can
// never point outside the mount.
func TestVerifyAndSanitizePath_WorkspaceNamespaceUse(t *testing.T) {
	t.Parallel()

	mountRoot := "/var/lib/sarthi/previews"

	namespace := "p_main_abc1234567"
	clonePath := filepath.Join(mountRoot, namespace)

	got, err := VerifyAndSanitizePath(clonePath, mountRoot)
	if err != nil {
		t.Fatalf("VerifyAndSanitizePath() unexpected error = %v", err)
	}

	want, _ := filepath.Abs(clonePath)
	if got != want {
		t.Fatalf("VerifyAndSanitizePath() = %s, want %s", got, want)
	}

	maliciousNamespace := "../../etc"
	maliciousPath := filepath.Join(mountRoot, maliciousNamespace)

	if _, err := VerifyAndSanitizePath(maliciousPath, mountRoot); !errors.Is(err, ErrPathTraversal) {
		t.Fatalf("expected ErrPathTraversal for namespace %q, got %v", maliciousNamespace, err)
	}
}
