package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tushar5526/sarthi/internal/compose"
	"github.com/tushar5526/sarthi/internal/namespace"
	"github.com/tushar5526/sarthi/internal/proxy"
)

func TestDecodeDeployBody_S6_RejectsNonGitURL(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/deploy", strings.NewReader(`{"project_git_url":"not-a-url","branch":"main"}`))

	_, _, err := decodeDeployBody(r)
	if err == nil {
		t.Fatal("expected an error for a project_git_url not ending in .git")
	}

	if !strings.Contains(err.Error(), ".git") {
		t.Fatalf("expected error message to mention .git, got %q", err.Error())
	}
}

func TestDecodeDeployBody_RejectsMissingURL(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/deploy", strings.NewReader(`{"branch":"main"}`))

	if _, _, err := decodeDeployBody(r); err == nil {
		t.Fatal("expected an error for a missing project_git_url")
	}
}

func TestDecodeDeployBody_DerivesProjectName(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/deploy", strings.NewReader(
		`{"project_git_url":"https://github.com/u/p.git","branch":"main"}`))

	req, gitURL, err := decodeDeployBody(r)
	if err != nil {
		t.Fatalf("decodeDeployBody() error = %v", err)
	}

	if gitURL != "https://github.com/u/p.git" {
		t.Fatalf("unexpected gitURL %q", gitURL)
	}

	if req.ProjectNameRaw != "p" {
		t.Fatalf("expected derived project name 'p', got %q", req.ProjectNameRaw)
	}

	if req.BranchNameRaw != "main" {
		t.Fatalf("expected branch 'main', got %q", req.BranchNameRaw)
	}
}

// TestDecodeDeployBody_S1 drives the full HTTP-body-to-namespace pipeline
// against the literal S1 scenario: a request for
// https://github.com/u/p.git on branch main must normalize to
// project="p", and the service's external URL must be exactly
// http://p-main-8080-{hash}.localhost.
func TestDecodeDeployBody_S1(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/deploy", strings.NewReader(
		`{"project_git_url":"https://github.com/u/p.git","branch":"main"}`))

	req, _, err := decodeDeployBody(r)
	if err != nil {
		t.Fatalf("decodeDeployBody() error = %v", err)
	}

	id, err := namespace.Derive(req.ProjectNameRaw, req.BranchNameRaw)
	if err != nil {
		t.Fatalf("namespace.Derive() error = %v", err)
	}

	if id.Project != "p" {
		t.Fatalf("normalized project = %q, want %q", id.Project, "p")
	}

	if id.Branch != "main" {
		t.Fatalf("normalized branch = %q, want %q", id.Branch, "main")
	}

	wantURL := "http://p-main-8080-" + id.Hash + ".localhost"

	mgr := proxy.New(proxy.Config{DomainName: "localhost"})
	table := compose.ServicePortTable{"web": {{HostPort: "8080", ContainerPort: "80"}}}

	_, urls, err := mgr.GenerateInnerConf(t.TempDir(), id.Project, id.Branch, id.Hash, table, []string{"web"})
	if err != nil {
		t.Fatalf("GenerateInnerConf() error = %v", err)
	}

	if len(urls) != 1 || urls[0] != wantURL {
		t.Fatalf("S1 URLs = %q, want [%q]", urls, wantURL)
	}
}

func TestVerifyBearer_MissingHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/deploy", nil)

	if err := verifyBearer(r, "secret"); err != ErrMissingAuthHeader {
		t.Fatalf("expected ErrMissingAuthHeader, got %v", err)
	}
}

func TestVerifyBearer_InvalidToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/deploy", nil)
	r.Header.Set("Authorization", "Bearer garbage")

	if err := verifyBearer(r, "secret"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
