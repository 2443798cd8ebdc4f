// Package proxy allocates host ports and generates/reloads the inner and
// outer nginx configuration for a preview deployment.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tushar5526/sarthi/internal/compose"
)

var (
	// ErrNoFreePort is returned when the configured port range is exhausted.
	ErrNoFreePort = errors.New("proxy: no free port in configured range")
	// ErrNginxConfigInvalid is returned when the generated outer conf fails
	// `nginx -t`.
	ErrNginxConfigInvalid = errors.New("proxy: nginx config invalid")
	// ErrNginxReloadFailed is returned when `nginx -s reload` fails.
	ErrNginxReloadFailed = errors.New("proxy: nginx reload failed")
)

const (
	dialTimeout      = 500 * time.Millisecond
	nginxContainer   = "sarthi_nginx"
	routesBlockTpl   = "    location / {\n        proxy_pass http://%s:%s;\n        proxy_set_header Host $host;\n        proxy_set_header X-Real-IP $remote_addr;\n        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;\n        proxy_set_header X-Forwarded-Proto $scheme;\n    }\n"
	serverBlockTpl   = "server {\n    listen 80;\n    server_name %s;\n%s}\n\n"
)

// Config holds the host and conf directories a Manager operates over.
type Config struct {
	OuterConfDir string
	DockerHost   string
	DomainName   string
	PortStart    int
	PortEnd      int
}

// Manager owns port allocation and both conf files for one deployment.
type Manager struct {
	cfg Config
}

// New returns a Manager bound to cfg.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// FindFreePort iterates integer ports from cfg.PortStart to cfg.PortEnd,
// attempting a TCP connect to each. A refused connection means the port is
// free. This is probing, not binding: the race window between probe and
// docker compose up is tolerated, per design.
func (m *Manager) FindFreePort() (int, error) {
	for port := m.cfg.PortStart; port <= m.cfg.PortEnd; port++ {
		addr := net.JoinHostPort(m.cfg.DockerHost, fmt.Sprintf("%d", port))

		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			return port, nil
		}

		_ = conn.Close()
	}

	return 0, ErrNoFreePort
}

// GenerateInnerConf writes one server block per (service, port) pair in
// table to {cloneDir}/{project}-{hash}.conf, and returns the conf path and
// the list of external URLs in the same order as the blocks.
func (m *Manager) GenerateInnerConf(cloneDir, project, branch, hash string, table compose.ServicePortTable, serviceOrder []string) (string, []string, error) {
	var (
		body bytes.Buffer
		urls []string
	)

	for _, service := range serviceOrder {
		for _, mapping := range table[service] {
			serviceURL := fmt.Sprintf("%s-%s-%s-%s.%s", project, branch, mapping.HostPort, hash, m.cfg.DomainName)
			urls = append(urls, "http://"+serviceURL)

			routes := fmt.Sprintf(routesBlockTpl, service, mapping.ContainerPort)
			body.WriteString(fmt.Sprintf(serverBlockTpl, "~"+serviceURL, routes))
		}
	}

	path := filepath.Join(cloneDir, fmt.Sprintf("%s-%s.conf", project, hash))

	//nolint:gosec // inner conf lives inside the namespace's own clone directory
	if err := os.WriteFile(path, body.Bytes(), 0o644); err != nil {
		return "", nil, fmt.Errorf("proxy: writing inner conf: %w", err)
	}

	return path, urls, nil
}

// GenerateOuterConf writes a single server block proxying ~{hash}.{domain}
// to http://{docker_host}:{innerPort} at {outer_conf_dir}/{project}-{hash}.conf,
// then validates it with `docker exec sarthi_nginx nginx -t`. On failure the
// file is removed and ErrNginxConfigInvalid is returned.
func (m *Manager) GenerateOuterConf(ctx context.Context, project, hash string, innerPort int) (string, error) {
	serverName := fmt.Sprintf("~%s.%s", hash, m.cfg.DomainName)
	routes := fmt.Sprintf(routesBlockTpl, m.cfg.DockerHost, fmt.Sprintf("%d", innerPort))
	body := fmt.Sprintf(serverBlockTpl, serverName, routes)

	path := filepath.Join(m.cfg.OuterConfDir, fmt.Sprintf("%s-%s.conf", project, hash))

	//nolint:gosec // outer conf dir is operator configured, not request controlled
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("proxy: writing outer conf: %w", err)
	}

	if err := m.testConfig(ctx); err != nil {
		_ = os.Remove(path)

		return "", fmt.Errorf("%w: %w", ErrNginxConfigInvalid, err)
	}

	return path, nil
}

// Reload runs `nginx -t` then `nginx -s reload` inside the host nginx
// container. A `-t` failure is fatal; a `-s reload` failure surfaces as
// ErrNginxReloadFailed, leaving the outer conf on disk.
func (m *Manager) Reload(ctx context.Context) error {
	if err := m.testConfig(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNginxConfigInvalid, err)
	}

	cmd := exec.CommandContext(ctx, "docker", "exec", nginxContainer, "nginx", "-s", "reload")

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNginxReloadFailed, strings.TrimSpace(stderr.String()), err)
	}

	return nil
}

// RemoveOuter idempotently unlinks the outer conf for (project, hash).
func (m *Manager) RemoveOuter(project, hash string) {
	_ = os.Remove(filepath.Join(m.cfg.OuterConfDir, fmt.Sprintf("%s-%s.conf", project, hash)))
}

func (m *Manager) testConfig(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "docker", "exec", nginxContainer, "nginx", "-t")

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
	}

	return nil
}
