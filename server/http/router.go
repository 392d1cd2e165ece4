package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/w-h-a/rag/internal/service/pipeline"
)

type Querier interface {
	Query(ctx context.Context, req pipeline.Request) (pipeline.Response, error)
}

// NewRouter serves queries on POST /query and POST /, health on GET / and
// prometheus metrics on GET /metrics.
func NewRouter(q Querier) http.Handler {
	h := &handlers{querier: q}

	r := mux.NewRouter()
	r.Use(Metrics)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/", h.health).Methods(http.MethodGet)
	r.HandleFunc("/", h.query).Methods(http.MethodPost)
	r.HandleFunc("/query", h.query).Methods(http.MethodPost)

	r.HandleFunc("/", h.methodNotAllowed)
	r.HandleFunc("/query", h.methodNotAllowed)

	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)
	r.NotFoundHandler = http.HandlerFunc(h.notFound)

	return CORS(r)
}
