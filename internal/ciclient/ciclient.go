// Package ciclient is the deploy-endpoint client side of the bearer-token
// contract: it signs a short-lived token and POSTs a deploy request. It is
// meant to be imported by a CI action, not by the server itself.
package ciclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenLifetime = 1 * time.Minute

// Client calls a sarthi deploy endpoint on behalf of a CI pipeline.
type Client struct {
	ServerURL string
	Secret    string
	http      *http.Client
}

// New returns a Client targeting serverURL, signing requests with secret.
func New(serverURL, secret string) *Client {
	return &Client{
		ServerURL: serverURL,
		Secret:    secret,
		http:      &http.Client{Timeout: 0},
	}
}

func (c *Client) bearerToken() (string, error) {
	now := time.Now().UTC()

	claims := jwt.MapClaims{
		"sub": "sarthi",
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(c.Secret))
	if err != nil {
		return "", fmt.Errorf("ciclient: failed to sign bearer token: %w", err)
	}

	return "Bearer " + signed, nil
}

// Deploy POSTs {project_git_url, branch} to the deploy endpoint and returns
// the service URLs it responds with.
func (c *Client) Deploy(projectGitURL, branch string) ([]string, error) {
	bearer, err := c.bearerToken()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{
		"project_git_url": projectGitURL,
		"branch":          branch,
	})
	if err != nil {
		return nil, fmt.Errorf("ciclient: failed to encode request body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.ServerURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ciclient: failed to build request: %w", err)
	}

	req.Header.Set("Authorization", bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ciclient: deploy request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ciclient: failed to read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ciclient: deploy request returned status %d: %s", resp.StatusCode, respBody)
	}

	var urls []string
	if err := json.Unmarshal(respBody, &urls); err != nil {
		return nil, fmt.Errorf("ciclient: failed to decode response body: %w", err)
	}

	return urls, nil
}
