package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/w-h-a/rag/internal/service/pipeline"
	"github.com/w-h-a/rag/prompt"
)

const maxBodyBytes = 1 << 20

type handlers struct {
	querier Querier
}

type queryBody struct {
	Query     string `json:"query"`
	SessionId string `json:"sessionId"`
}

type queryResponse struct {
	Answer  string                 `json:"answer"`
	Sources []prompt.SourceSummary `json:"sources"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type healthResponse struct {
	Status    string   `json:"status"`
	Service   string   `json:"service"`
	Endpoints []string `json:"endpoints"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Service:   "RAG Worker",
		Endpoints: []string{"POST /query"},
	})
}

func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	var body queryBody

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing or invalid query", Details: err.Error()})
		return
	}

	rsp, err := h.querier.Query(r.Context(), pipeline.Request{Query: body.Query, SessionId: body.SessionId})
	if err != nil {
		status, payload := mapError(err)
		if status >= http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "query failed", "status", status, "error", err)
		}
		writeJSON(w, status, payload)
		return
	}

	if len(rsp.SessionId) > 0 {
		w.Header().Set("X-Session-Id", rsp.SessionId)
	}

	sources := rsp.Sources
	if sources == nil {
		sources = []prompt.SourceSummary{}
	}

	writeJSON(w, http.StatusOK, queryResponse{Answer: rsp.Answer, Sources: sources})
}

func (h *handlers) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusMethodNotAllowed, "Method not allowed. Use POST to query.")
}

func (h *handlers) notFound(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusNotFound, "Not found")
}

func mapError(err error) (int, errorResponse) {
	var perr *pipeline.Error
	if !errors.As(err, &perr) {
		return http.StatusInternalServerError, errorResponse{Error: "Internal server error", Details: err.Error()}
	}

	switch {
	case errors.Is(err, pipeline.ErrBadRequest):
		return http.StatusBadRequest, errorResponse{Error: perr.Message}
	case errors.Is(err, pipeline.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, errorResponse{Error: perr.Message, Details: perr.Details}
	}

	return http.StatusInternalServerError, errorResponse{Error: "Internal server error", Details: perr.Details}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	w.Write([]byte(text))
}
