package deployer

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/tushar5526/sarthi/internal/config"
	"github.com/tushar5526/sarthi/internal/logger"
	"github.com/tushar5526/sarthi/internal/namespace"
)

func testDeployer(t *testing.T) *Deployer {
	t.Helper()

	cfg := &config.AppConfig{
		DeploymentsMountDir: t.TempDir(),
		LockFileBasePath:    t.TempDir(),
		NginxProxyConfDir:   t.TempDir(),
		DeploymentHost:      "127.0.0.1",
		DeploymentPortStart: 25300,
		DeploymentPortEnd:   25310,
		DomainName:          "localhost",
		VaultBaseURL:        "http://127.0.0.1:1", // deliberately unreachable
		VaultToken:          "tok",
	}

	return New(cfg, logger.New(slog.LevelError))
}

func TestDelete_IdempotentOnMissingClone_S5(t *testing.T) {
	d := testDeployer(t)

	req := Request{ProjectNameRaw: "p", BranchNameRaw: "main"}

	if err := d.Delete(t.Context(), req); err != nil {
		t.Fatalf("Delete() on a namespace with no clone dir should succeed, got %v", err)
	}
}

func TestDelete_RemovesCloneDirectory(t *testing.T) {
	d := testDeployer(t)

	req := Request{ProjectNameRaw: "p", BranchNameRaw: "main"}

	id, err := namespace.Derive(req.ProjectNameRaw, req.BranchNameRaw)
	if err != nil {
		t.Fatalf("derive error: %v", err)
	}

	clonePath := d.workspace.Path(id.Namespace)
	if err := os.MkdirAll(clonePath, 0o755); err != nil {
		t.Fatalf("mkdir clone dir: %v", err)
	}

	if err := d.Delete(context.Background(), req); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := os.Stat(clonePath); !os.IsNotExist(err) {
		t.Fatal("expected clone directory to be removed by Delete")
	}
}
