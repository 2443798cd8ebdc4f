// Package secretsclient is a thin client over the per-namespace KV store
// that seeds and injects a deployment's .env file.
package secretsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/tushar5526/sarthi/internal/logger"
)

// ErrSecretStoreUnavailable is returned at construction when the base URL or
// token is unset.
var ErrSecretStoreUnavailable = errors.New("secretsclient: secret store base URL or token not configured")

const (
	headerVaultToken  = "X-Vault-Token"
	placeholderKey    = "key"
	placeholderValue  = "secret-value"
	purgeRetryAttempts = 3
	purgeRetryDelay    = 500 * time.Millisecond
)

// sampleEnvFiles are searched, in order, to seed a namespace's placeholder
// secrets on first deploy.
var sampleEnvFiles = []string{".env.sample", "env.sample", "sample.env"}

// Client talks to an HTTP KV store addressed as
// {base}/v1/kv/data|metadata/{project}/{branch}.
type Client struct {
	baseURL string
	token   string
	project string
	branch  string
	http    *http.Client
	log     *logger.Logger
}

// New returns a Client scoped to one namespace's (project, branch) secrets
// path. Fails with ErrSecretStoreUnavailable if baseURL or token is empty.
func New(baseURL, token, project, branch string, log *logger.Logger) (*Client, error) {
	if baseURL == "" || token == "" {
		return nil, ErrSecretStoreUnavailable
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		project: project,
		branch:  branch,
		http:    &http.Client{},
		log:     log,
	}, nil
}

func (c *Client) dataURL() string {
	return fmt.Sprintf("%s/v1/kv/data/%s/%s", c.baseURL, c.project, c.branch)
}

func (c *Client) metadataURL() string {
	return fmt.Sprintf("%s/v1/kv/metadata/%s/%s", c.baseURL, c.project, c.branch)
}

// Inject writes {clonePath}/.env from the KV store's current data on 200,
// one double-quoted key=value pair per line. On any other status it seeds a
// placeholder instead and the caller proceeds without a populated .env file.
func (c *Client) Inject(ctx context.Context, clonePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.dataURL(), nil)
	if err != nil {
		return fmt.Errorf("secretsclient: building request: %w", err)
	}

	req.Header.Set(headerVaultToken, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("secret store unreachable, seeding placeholder", logger.ErrAttr(err))

		return c.SeedPlaceholder(ctx, clonePath)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("no secrets found in store", "project", c.project, "branch", c.branch, "status", resp.StatusCode)

		return c.SeedPlaceholder(ctx, clonePath)
	}

	var body struct {
		Data struct {
			Data map[string]string `json:"data"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("secretsclient: decoding secret data: %w", err)
	}

	return writeEnvFile(clonePath, body.Data.Data)
}

// SeedPlaceholder looks for a sample env file in priority order
// (.env.sample, env.sample, sample.env), falling back to a single
// placeholder pair, and POSTs it to the data URL. HTTP errors (transport
// failures and error statuses) are logged, not propagated, since inject's
// caller proceeds regardless; a failure to encode the payload or build the
// request is returned.
func (c *Client) SeedPlaceholder(ctx context.Context, clonePath string) error {
	pairs := map[string]string{placeholderKey: placeholderValue}

	for _, name := range sampleEnvFiles {
		path := filepath.Join(clonePath, name)

		parsed, err := readDotEnv(path)
		if err != nil {
			continue
		}

		pairs = parsed

		break
	}

	payload, err := json.Marshal(map[string]any{"data": pairs})
	if err != nil {
		return fmt.Errorf("secretsclient: marshaling placeholder: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dataURL(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("secretsclient: building request: %w", err)
	}

	req.Header.Set(headerVaultToken, c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("failed seeding placeholder secrets", logger.ErrAttr(err))

		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.log.Warn("secret store rejected placeholder seed", "status", resp.StatusCode)
	}

	return nil
}

// Purge deletes the metadata URL for this namespace, retrying transient
// transport failures a bounded number of times. Every failure, including
// exhausted retries, is logged rather than returned: teardown is
// best-effort.
func (c *Client) Purge(ctx context.Context) {
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(purgeRetryAttempts),
		retry.Delay(purgeRetryDelay),
	).Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.metadataURL(), nil)
		if err != nil {
			return retry.Unrecoverable(err)
		}

		req.Header.Set(headerVaultToken, c.token)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusNotFound {
			return retry.Unrecoverable(fmt.Errorf("secret store rejected purge with status %d", resp.StatusCode))
		}

		return nil
	})
	if err != nil {
		c.log.Warn("failed purging secrets", logger.ErrAttr(err))
	}
}

func writeEnvFile(clonePath string, pairs map[string]string) error {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var buf bytes.Buffer

	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%q\n", k, pairs[k])
	}

	//nolint:gosec // .env lives inside the namespace's own clone directory
	return os.WriteFile(filepath.Join(clonePath, ".env"), buf.Bytes(), 0o600)
}

// readDotEnv parses a simple KEY=VALUE file, one pair per line, ignoring
// blank lines and lines starting with #.
func readDotEnv(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pairs := map[string]string{}

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		pairs[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}

	return pairs, nil
}
