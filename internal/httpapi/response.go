// Package httpapi exposes the orchestrator over HTTP: bearer-JWT auth,
// request parsing, and the /deploy handler that drives a Deployer.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type jsonResponse struct {
	Content any    `json:"content,omitempty"`
	JobID   string `json:"job_id,omitempty"`
}

// jsonError inherits from jsonResponse and adds an error message.
type jsonError struct {
	Error string `json:"error"`
	jsonResponse
}

// JSONError writes an error response to the client in JSON format.
func JSONError(w http.ResponseWriter, err any, details any, jobID string, code int) {
	if e, ok := err.(error); ok {
		err = e.Error()
	}

	resp := jsonError{
		Error: fmt.Sprintf("%v", err),
		jsonResponse: jsonResponse{
			Content: details,
			JobID:   jobID,
		},
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(resp)
}

// JSONResponse writes content as the raw response body, matching the
// deploy endpoint's literal contract (a bare URL array, or a bare
// {"message": ...} object) rather than wrapping it. The job id travels in
// a header instead, so callers can still correlate a response to a log
// line without the wire format changing.
func JSONResponse(w http.ResponseWriter, content any, jobID string, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if jobID != "" {
		w.Header().Set("X-Job-Id", jobID)
	}

	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(content)
}
