package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Media types written by this package.
const (
	ContentTypeJSON    = "application/json"
	ContentTypeProblem = "application/problem+json"
)

// ProblemDetail is an RFC7807 problem document.
type ProblemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data with the given status. Responses are never cached since
// they reflect the caller's society.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, ContentTypeJSON, status, data)
}

// Problem writes an RFC7807 document with type about:blank.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	write(w, ContentTypeProblem, status, ProblemDetail{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func write(w http.ResponseWriter, contentType string, status int, body any) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("httpx: encode response", slog.Any("error", err))
	}
}
