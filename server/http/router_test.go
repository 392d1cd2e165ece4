package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/w-h-a/rag/internal/service/pipeline"
	"github.com/w-h-a/rag/prompt"
)

type stubQuerier struct {
	rsp pipeline.Response
	err error
	got pipeline.Request
}

func (s *stubQuerier) Query(ctx context.Context, req pipeline.Request) (pipeline.Response, error) {
	s.got = req
	return s.rsp, s.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if len(body) > 0 {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, NewRouter(&stubQuerier{}), http.MethodGet, "/", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing cors header")
	}

	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Service != "RAG Worker" || len(body.Endpoints) != 1 || body.Endpoints[0] != "POST /query" {
		t.Fatalf("unexpected health body %#v", body)
	}
}

func TestPreflight(t *testing.T) {
	for _, path := range []string{"/query", "/", "/anything"} {
		rec := do(t, NewRouter(&stubQuerier{}), http.MethodOptions, path, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Methods") != "POST, OPTIONS, GET" {
			t.Fatalf("%s: unexpected allow methods %q", path, rec.Header().Get("Access-Control-Allow-Methods"))
		}
		if rec.Header().Get("Access-Control-Allow-Headers") != "Content-Type" {
			t.Fatalf("%s: unexpected allow headers", path)
		}
	}
}

func TestQuery(t *testing.T) {
	q := &stubQuerier{rsp: pipeline.Response{
		Answer:    "answer",
		Sources:   []prompt.SourceSummary{{Source: "a.md", Content: "abc..."}},
		SessionId: "s-1",
	}}

	for _, path := range []string{"/query", "/"} {
		rec := do(t, NewRouter(q), http.MethodPost, path, `{"query":"What is RAG?","sessionId":"s-1"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d body=%s", path, rec.Code, rec.Body.String())
		}
		if q.got.Query != "What is RAG?" || q.got.SessionId != "s-1" {
			t.Fatalf("%s: request not forwarded: %#v", path, q.got)
		}
		if rec.Header().Get("X-Session-Id") != "s-1" {
			t.Fatalf("%s: missing session header", path)
		}

		var body queryResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Answer != "answer" || len(body.Sources) != 1 || body.Sources[0].Source != "a.md" {
			t.Fatalf("%s: unexpected body %#v", path, body)
		}
	}
}

func TestQueryEmptySourcesEncodeAsArray(t *testing.T) {
	rec := do(t, NewRouter(&stubQuerier{rsp: pipeline.Response{Answer: "a"}}), http.MethodPost, "/query", `{"query":"q"}`)

	if !strings.Contains(rec.Body.String(), `"sources":[]`) {
		t.Fatalf("expected empty sources array, got %s", rec.Body.String())
	}
}

func TestQueryInvalidBody(t *testing.T) {
	tests := []string{`not json`, `{"query": 42}`, ``}

	for _, body := range tests {
		q := &stubQuerier{}
		rec := do(t, NewRouter(q), http.MethodPost, "/query", body)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d", body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Missing or invalid query") {
			t.Fatalf("body %q: unexpected response %s", body, rec.Body.String())
		}
	}
}

func TestQueryErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantDetail string
	}{
		{
			name:       "bad request",
			err:        &pipeline.Error{Kind: pipeline.ErrBadRequest, Message: "Missing or invalid query"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing or invalid query",
		},
		{
			name:       "upstream unavailable",
			err:        &pipeline.Error{Kind: pipeline.ErrUpstreamUnavailable, Stage: pipeline.StageGenerating, Message: "inference endpoint is not available"},
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "inference endpoint is not available",
		},
		{
			name:       "internal",
			err:        &pipeline.Error{Kind: pipeline.ErrInternal, Message: "Internal server error", Details: "inference failed: timeout"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
			wantDetail: "inference failed: timeout",
		},
		{
			name:       "untyped",
			err:        fmt.Errorf("wrapped: %w", errors.New("boom")),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
			wantDetail: "wrapped: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, NewRouter(&stubQuerier{err: tt.err}), http.MethodPost, "/query", `{"query":"q"}`)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.wantError || body.Details != tt.wantDetail {
				t.Fatalf("unexpected body %#v", body)
			}
			if strings.Contains(rec.Body.String(), "answer") {
				t.Fatalf("no partial answer expected: %s", rec.Body.String())
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	for _, tt := range []struct{ method, path string }{
		{http.MethodGet, "/query"},
		{http.MethodPut, "/query"},
		{http.MethodDelete, "/"},
	} {
		rec := do(t, NewRouter(&stubQuerier{}), tt.method, tt.path, "")

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: status = %d", tt.method, tt.path, rec.Code)
		}
		if rec.Body.String() != "Method not allowed. Use POST to query." {
			t.Fatalf("%s %s: body = %q", tt.method, tt.path, rec.Body.String())
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Fatalf("missing cors header on 405")
		}
	}
}

func TestNotFound(t *testing.T) {
	rec := do(t, NewRouter(&stubQuerier{}), http.MethodPost, "/nope", `{}`)

	if rec.Code != http.StatusNotFound || rec.Body.String() != "Not found" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "text/plain" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, NewRouter(&stubQuerier{}), http.MethodGet, "/metrics", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
