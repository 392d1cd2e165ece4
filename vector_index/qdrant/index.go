package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	getsafe "github.com/w-h-a/rag/util/get_safe"
	vectorindex "github.com/w-h-a/rag/vector_index"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	documentIdKey = "document_id"
	metadataKey   = "metadata"
)

type qdrantIndex struct {
	options vectorindex.Options
	client  *http.Client
}

func (q *qdrantIndex) Query(ctx context.Context, vector []float32, topK int) ([]vectorindex.Match, error) {
	if topK < 1 {
		return nil, nil
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}

	var rsp qdrantEnvelope[[]qdrantScoredPoint]

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(q.options.Collection))

	if err := q.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return nil, err
	}

	matches := make([]vectorindex.Match, 0, len(rsp.Result))

	for _, point := range rsp.Result {
		id := getsafe.String(point.Payload, documentIdKey)
		if len(id) == 0 {
			id = fmt.Sprint(point.Id)
		}

		matches = append(matches, vectorindex.Match{
			Id:       id,
			Score:    float32(point.Score),
			Metadata: getsafe.Map(point.Payload, metadataKey),
		})
	}

	return matches, nil
}

func (q *qdrantIndex) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	if len(id) == 0 {
		return errors.New("vector id is required")
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	point := map[string]any{
		"id":     pointId(id),
		"vector": vector,
		"payload": map[string]any{
			documentIdKey: id,
			metadataKey:   metadata,
		},
	}

	req := map[string]any{
		"points": []map[string]any{point},
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(q.options.Collection))

	if err := q.do(ctx, http.MethodPut, path, req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") && len(rsp.Status.Error) > 0 {
		return errors.New(rsp.Status.Error)
	}

	return nil
}

func (q *qdrantIndex) do(ctx context.Context, method string, path string, req any, rsp any) error {
	u := strings.TrimRight(q.options.Location, "/") + path

	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")

	if len(q.options.ApiKey) > 0 {
		request.Header.Set("api-key", q.options.ApiKey)
	}

	response, err := q.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode == http.StatusNotFound {
		return errNotFound
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("qdrant http %d: %s", response.StatusCode, string(payload))
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return err
		}
	}

	return nil
}

var errNotFound = errors.New("qdrant resource not found")

func (q *qdrantIndex) configure(ctx context.Context) error {
	exists, err := q.collectionExists(ctx)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return q.createCollection(ctx)
}

func (q *qdrantIndex) collectionExists(ctx context.Context) (bool, error) {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(q.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	if err := q.do(ctx, http.MethodGet, path, nil, &rsp); err != nil {
		if errors.Is(err, errNotFound) {
			return false, nil
		}
		return false, err
	}

	return strings.EqualFold(rsp.Status.State, "ok"), nil
}

func (q *qdrantIndex) createCollection(ctx context.Context) error {
	distance := q.options.Distance
	if len(distance) == 0 {
		distance = "Cosine"
	}

	req := map[string]any{
		"vectors": map[string]any{
			"size":     q.options.VectorSize,
			"distance": distance,
		},
	}

	path := fmt.Sprintf("/collections/%s", url.PathEscape(q.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	if err := q.do(ctx, http.MethodPut, path, req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") {
		return errors.New(rsp.Status.Error)
	}

	return nil
}

// pointId maps an arbitrary document id onto the uuid space qdrant accepts.
func pointId(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func newQdrantIndex(options vectorindex.Options, client *http.Client) (*qdrantIndex, error) {
	q := &qdrantIndex{
		options: options,
		client:  client,
	}

	if err := q.configure(options.Context); err != nil {
		return nil, err
	}

	return q, nil
}

func NewIndex(opts ...vectorindex.Option) vectorindex.Index {
	options := vectorindex.NewOptions(opts...)

	if len(options.Location) == 0 ||
		len(options.Collection) == 0 ||
		options.VectorSize == 0 {
		panic("missing location, collection, or vector size for qdrant vector index")
	}

	client := &http.Client{
		Timeout:   15 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	q, err := newQdrantIndex(options, client)
	if err != nil {
		detail := "failed to configure qdrant vector index"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	return q
}
