package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tushar5526/sarthi/internal/deployer"
	"github.com/tushar5526/sarthi/internal/logger"
)

// ErrMissingGitURL and ErrInvalidGitURL are the two ways request
// validation fails; both map to 400.
var (
	ErrMissingGitURL = errors.New("project_git_url is required")
	ErrInvalidGitURL = errors.New("project_git_url must end with .git")
)

// deployBody is the JSON shape of both POST and DELETE /deploy.
type deployBody struct {
	ProjectGitURL       string `json:"project_git_url"`
	Branch              string `json:"branch"`
	ComposeFileLocation string `json:"compose_file_location,omitempty"`
}

// projectNameFromURL derives the raw project name from a git URL: the
// repository name only, org/user discarded, matching
// original_source/action/main.py's `GITHUB_REPOSITORY.split("/")[1]`.
func projectNameFromURL(gitURL string) string {
	parts := strings.Split(strings.TrimSuffix(gitURL, "/"), "/")

	return strings.TrimSuffix(parts[len(parts)-1], ".git")
}

func decodeDeployBody(r *http.Request) (deployer.Request, string, error) {
	var body deployBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return deployer.Request{}, "", err
	}

	if body.ProjectGitURL == "" {
		return deployer.Request{}, "", ErrMissingGitURL
	}

	if !strings.HasSuffix(body.ProjectGitURL, ".git") {
		return deployer.Request{}, "", ErrInvalidGitURL
	}

	req := deployer.Request{
		ProjectNameRaw:      projectNameFromURL(body.ProjectGitURL),
		BranchNameRaw:       body.Branch,
		ProjectGitURL:       body.ProjectGitURL,
		ComposeFileLocation: body.ComposeFileLocation,
	}

	return req, body.ProjectGitURL, nil
}

// Deploy drives the full Create pipeline and returns the ordered URL list.
func Deploy(d *deployer.Deployer, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := uuid.Must(uuid.NewRandom()).String()
		jobLog := log.With(slog.String("job_id", jobID))

		req, gitURL, err := decodeDeployBody(r)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, ErrMissingGitURL) || errors.Is(err, ErrInvalidGitURL) {
				jobLog.Debug("rejected malformed deploy request", logger.ErrAttr(err))
			} else {
				jobLog.Debug("failed to parse deploy request body", logger.ErrAttr(err))
			}

			JSONError(w, err, "", jobID, status)

			return
		}

		jobLog = jobLog.With(slog.String("project_git_url", gitURL), slog.String("branch", req.BranchNameRaw))
		jobLog.Info("deploying preview environment")

		urls, err := d.Create(r.Context(), req)
		if err != nil {
			jobLog.Error("deploy failed", logger.ErrAttr(err))
			JSONError(w, err, err.Error(), jobID, http.StatusInternalServerError)

			return
		}

		jobLog.Info("preview environment deployed", slog.Any("urls", urls))
		JSONResponse(w, urls, jobID, http.StatusCreated)
	}
}

// Teardown drives the Delete pipeline.
func Teardown(d *deployer.Deployer, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := uuid.Must(uuid.NewRandom()).String()
		jobLog := log.With(slog.String("job_id", jobID))

		req, gitURL, err := decodeDeployBody(r)
		if err != nil {
			jobLog.Debug("rejected malformed teardown request", logger.ErrAttr(err))
			JSONError(w, err, "", jobID, http.StatusBadRequest)

			return
		}

		jobLog = jobLog.With(slog.String("project_git_url", gitURL), slog.String("branch", req.BranchNameRaw))
		jobLog.Info("tearing down preview environment")

		if err := d.Delete(r.Context(), req); err != nil {
			jobLog.Error("teardown failed", logger.ErrAttr(err))
			JSONError(w, err, err.Error(), jobID, http.StatusInternalServerError)

			return
		}

		JSONResponse(w, map[string]string{"message": "Removed preview environment"}, jobID, http.StatusOK)
	}
}

// Mux wires the /deploy and /metrics routes, with bearer auth on /deploy.
func Mux(d *deployer.Deployer, log *logger.Logger, secret string, metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /deploy", requireBearer(secret, Deploy(d, log)))
	mux.HandleFunc("DELETE /deploy", requireBearer(secret, Teardown(d, log)))
	mux.Handle("GET /metrics", metricsHandler)

	return mux
}
