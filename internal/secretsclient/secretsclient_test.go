package secretsclient

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tushar5526/sarthi/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(slog.LevelError)
}

func TestNew_FailsWithoutBaseURLOrToken(t *testing.T) {
	if _, err := New("", "tok", "p", "b", testLogger()); err == nil {
		t.Fatal("expected ErrSecretStoreUnavailable for empty base URL")
	}

	if _, err := New("http://x", "", "p", "b", testLogger()); err == nil {
		t.Fatal("expected ErrSecretStoreUnavailable for empty token")
	}
}

func TestInject_WritesEnvFileOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerVaultToken) != "tok" {
			t.Fatalf("missing vault token header")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"data":{"FOO":"bar"}}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "tok", "p", "main", testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	dir := t.TempDir()

	if err := c.Inject(t.Context(), dir); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatalf("reading .env: %v", err)
	}

	if string(got) != "FOO=\"bar\"\n" {
		t.Fatalf(".env content = %q, want FOO=\"bar\"\\n", got)
	}
}

func TestInject_SeedsPlaceholderOnNon200(t *testing.T) {
	var posted bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPost:
			posted = true

			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, "tok", "p", "main", testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	dir := t.TempDir()

	if err := c.Inject(t.Context(), dir); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}

	if !posted {
		t.Fatal("expected SeedPlaceholder to POST when GET is non-200")
	}

	if _, err := os.Stat(filepath.Join(dir, ".env")); err == nil {
		t.Fatal(".env should not be written when GET is non-200")
	}
}

func TestSeedPlaceholder_PrefersSampleEnvFile(t *testing.T) {
	var gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 4096)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "tok", "p", "main", testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env.sample"), []byte("API_KEY=abc123\n"), 0o600); err != nil {
		t.Fatalf("writing sample env: %v", err)
	}

	if err := c.SeedPlaceholder(t.Context(), dir); err != nil {
		t.Fatalf("SeedPlaceholder() error = %v", err)
	}

	if !strings.Contains(gotBody, "API_KEY") {
		t.Fatalf("posted body = %q, want it to contain API_KEY from .env.sample", gotBody)
	}
}
