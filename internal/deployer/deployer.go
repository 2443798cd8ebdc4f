// Package deployer orchestrates the other components under a per-namespace
// lock. It exposes the two linear flows the rest of the system drives:
// Create and Delete.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/tushar5526/sarthi/internal/compose"
	"github.com/tushar5526/sarthi/internal/composerunner"
	"github.com/tushar5526/sarthi/internal/config"
	"github.com/tushar5526/sarthi/internal/lock"
	"github.com/tushar5526/sarthi/internal/logger"
	"github.com/tushar5526/sarthi/internal/metrics"
	"github.com/tushar5526/sarthi/internal/namespace"
	"github.com/tushar5526/sarthi/internal/proxy"
	"github.com/tushar5526/sarthi/internal/secretsclient"
	"github.com/tushar5526/sarthi/internal/workspace"
)

// ErrComposeParseError is returned when the requested compose file cannot
// be read or parsed.
var ErrComposeParseError = errors.New("deployer: could not parse compose file")

const (
	defaultComposeFile = "docker-compose.yml"
	upRetryAttempts    = 3
	upRetryDelay       = 2 * time.Second
)

// Request is one Create or Delete request, immutable after construction.
type Request struct {
	ProjectNameRaw      string
	BranchNameRaw       string
	ProjectGitURL       string
	ComposeFileLocation string
}

func (r Request) composeFile() string {
	if r.ComposeFileLocation == "" {
		return defaultComposeFile
	}

	return r.ComposeFileLocation
}

// Deployer wires Workspace, SecretsClient, ComposeRewriter, ProxyManager
// and ComposeRunner together under a per-namespace lock.
type Deployer struct {
	cfg       *config.AppConfig
	workspace *workspace.Workspace
	proxyMgr  *proxy.Manager
	runner    *composerunner.Runner
	log       *logger.Logger
}

// New returns a Deployer configured from cfg.
func New(cfg *config.AppConfig, log *logger.Logger) *Deployer {
	return &Deployer{
		cfg:       cfg,
		workspace: workspace.New(cfg.DeploymentsMountDir, log),
		proxyMgr: proxy.New(proxy.Config{
			OuterConfDir: cfg.NginxProxyConfDir,
			DockerHost:   cfg.DeploymentHost,
			DomainName:   cfg.DomainName,
			PortStart:    cfg.DeploymentPortStart,
			PortEnd:      cfg.DeploymentPortEnd,
		}),
		runner: composerunner.New(log),
		log:    log,
	}
}

func (d *Deployer) namespaceLock(id namespace.Identity) (*lock.Lock, error) {
	return lock.New(d.cfg.LockFileBasePath, id.Namespace)
}

// Create clones the project, injects secrets, rewrites the compose file
// with an inner nginx, brings the stack up, and reconfigures the outer
// nginx so each service is reachable at its deterministic hostname. It
// returns the ordered list of external URLs.
func (d *Deployer) Create(ctx context.Context, req Request) ([]string, error) {
	start := time.Now()

	id, err := namespace.Derive(req.ProjectNameRaw, req.BranchNameRaw)
	if err != nil {
		return nil, err
	}

	l, err := d.namespaceLock(id)
	if err != nil {
		return nil, err
	}

	if err := l.Acquire(ctx); err != nil {
		return nil, err
	}
	defer l.Release()

	log := d.log.With("namespace", id.Namespace, "action", "create")

	clonePath, err := d.workspace.Prepare(ctx, id.Namespace, req.ProjectGitURL, req.BranchNameRaw)
	if err != nil {
		metrics.DeploymentsTotal.WithLabelValues("clone_failed").Inc()

		return nil, err
	}

	composePath := filepath.Join(clonePath, req.composeFile())

	doc, err := compose.Load(composePath)
	if err != nil {
		metrics.DeploymentsTotal.WithLabelValues("compose_parse_error").Inc()

		return nil, fmt.Errorf("%w: %w", ErrComposeParseError, err)
	}

	table := doc.ExtractServicePorts()
	serviceOrder := doc.ServiceNames()

	innerConfPath, urls, err := d.proxyMgr.GenerateInnerConf(clonePath, id.Project, id.Branch, id.Hash, table, serviceOrder)
	if err != nil {
		metrics.DeploymentsTotal.WithLabelValues("proxy_error").Inc()

		return nil, err
	}

	secrets, err := secretsclient.New(d.cfg.VaultBaseURL, d.cfg.VaultToken, id.Project, id.Branch, d.log)
	if err != nil {
		metrics.DeploymentsTotal.WithLabelValues("secret_store_unavailable").Inc()

		return nil, err
	}

	if err := secrets.Inject(ctx, clonePath); err != nil {
		log.Warn("secret injection failed, proceeding without populated .env", logger.ErrAttr(err))
	}

	innerPort, err := d.composeUpWithPortRetry(ctx, doc, id.Namespace, innerConfPath, clonePath, log)
	if err != nil {
		metrics.DeploymentsTotal.WithLabelValues("compose_up_failed").Inc()

		return nil, err
	}

	if _, err := d.proxyMgr.GenerateOuterConf(ctx, id.Project, id.Hash, innerPort); err != nil {
		metrics.DeploymentsTotal.WithLabelValues("nginx_config_invalid").Inc()

		return nil, err
	}

	if err := d.proxyMgr.Reload(ctx); err != nil {
		metrics.DeploymentsTotal.WithLabelValues("nginx_reload_failed").Inc()

		return nil, err
	}

	metrics.DeploymentsTotal.WithLabelValues("success").Inc()
	metrics.DeployDuration.Observe(time.Since(start).Seconds())

	log.Info("preview environment created", "urls", urls)

	return urls, nil
}

// composeUpWithPortRetry allocates an inner nginx port, rewrites the
// compose document to bind it, writes the document, and runs compose up.
// On a ComposeUpFailed whose stderr indicates the port was already in use,
// it retries the whole find-port/rewrite/up sub-sequence a bounded number
// of times - any other failure cause is not retried.
func (d *Deployer) composeUpWithPortRetry(ctx context.Context, doc *compose.Document, ns, innerConfPath, clonePath string, log *slog.Logger) (int, error) {
	var innerPort int

	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(upRetryAttempts),
		retry.Delay(upRetryDelay),
	).Do(
		func() error {
			searchStart := time.Now()
			port, err := d.proxyMgr.FindFreePort()
			metrics.FreePortSearchDuration.Observe(time.Since(searchStart).Seconds())

			if err != nil {
				return retry.Unrecoverable(err)
			}

			innerPort = port

			doc.Rewrite(ns, innerConfPath, innerPort)

			if err := doc.Write(); err != nil {
				return retry.Unrecoverable(err)
			}

			if err := d.runner.Up(ctx, clonePath); err != nil {
				if composerunner.IsPortConflict(err) {
					metrics.ComposeUpRetries.Inc()
					log.Warn("compose up hit a port conflict, retrying with a new port", logger.ErrAttr(err))

					return err
				}

				return retry.Unrecoverable(err)
			}

			return nil
		},
	)

	if err != nil {
		return 0, err
	}

	return innerPort, nil
}

// Delete tears down containers, removes the outer conf and reloads nginx,
// removes the clone directory, and purges secrets - in that order, per the
// ordering rules every step must preserve. Every step is best-effort: this
// flow must be idempotent and succeed even against an already-torn-down
// namespace.
func (d *Deployer) Delete(ctx context.Context, req Request) error {
	id, err := namespace.Derive(req.ProjectNameRaw, req.BranchNameRaw)
	if err != nil {
		return err
	}

	l, err := d.namespaceLock(id)
	if err != nil {
		return err
	}

	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()

	log := d.log.With("namespace", id.Namespace, "action", "delete")

	clonePath := d.workspace.Path(id.Namespace)

	if err := d.runner.Down(ctx, clonePath); err != nil {
		log.Warn("compose down reported an error, continuing teardown", logger.ErrAttr(err))
	}

	d.proxyMgr.RemoveOuter(id.Project, id.Hash)

	if err := d.proxyMgr.Reload(ctx); err != nil {
		log.Warn("nginx reload after teardown failed", logger.ErrAttr(err))
	}

	if err := d.workspace.Remove(id.Namespace); err != nil {
		log.Warn("failed removing clone directory", logger.ErrAttr(err))
	}

	secrets, err := secretsclient.New(d.cfg.VaultBaseURL, d.cfg.VaultToken, id.Project, id.Branch, d.log)
	if err != nil {
		log.Warn("secret store unavailable during purge", logger.ErrAttr(err))
	} else {
		secrets.Purge(ctx)
	}

	metrics.TeardownsTotal.WithLabelValues("success").Inc()

	log.Info("preview environment removed")

	return nil
}
