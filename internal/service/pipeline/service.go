package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/rag/document"
	"github.com/w-h-a/rag/message"
	"github.com/w-h-a/rag/prompt"
	"github.com/w-h-a/rag/ranker"
	"github.com/w-h-a/rag/retriever"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/w-h-a/rag/internal/service/pipeline")

type Request struct {
	Query     string `json:"query"`
	SessionId string `json:"sessionId,omitempty"`
}

type Response struct {
	Answer    string                 `json:"answer"`
	Sources   []prompt.SourceSummary `json:"sources"`
	SessionId string                 `json:"-"`
}

type Service struct {
	options Options
	persist sync.WaitGroup
}

func (s *Service) Query(ctx context.Context, req Request) (rsp Response, err error) {
	start := s.options.Now()
	stage := StageValidating

	defer func() {
		queriesTotal.WithLabelValues(Outcome(err)).Inc()
		queryDurationSeconds.Observe(s.options.Now().Sub(start).Seconds())
	}()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "pipeline panicked", "stage", stage.String(), "panic", r)
			rsp, err = Response{}, internal(stage, "Internal server error", fmt.Errorf("%v", r))
		}
	}()

	query := req.Query
	if len(strings.TrimSpace(query)) == 0 {
		return Response{}, badRequest("Missing or invalid query")
	}

	sessionId := req.SessionId
	if len(sessionId) == 0 {
		sessionId = "session-" + uuid.NewString()
	}

	slog.InfoContext(ctx, "processing query", "session", sessionId, "query", query)

	stage = StageRetrieving
	dense, sparse := s.retrieve(ctx, query)

	slog.InfoContext(ctx, "retrieval finished", "dense", len(dense), "sparse", len(sparse))

	stage = StageRanking
	_, span := tracer.Start(ctx, "rag.rank")
	ranked := ranker.EnsembleRank(dense, sparse, s.options.DenseWeight, s.options.SparseWeight)
	span.SetAttributes(attribute.Int("rag.rank.documents", len(ranked)))
	span.End()

	stage = StageLoadingHistory
	history := s.loadHistory(ctx, sessionId)

	stage = StagePrompting
	messages := prompt.BuildPrompt(ranked, query, history)

	stage = StageGenerating
	answer, genErr := s.generate(ctx, messages)
	if genErr != nil {
		slog.ErrorContext(ctx, "generation failed", "session", sessionId, "error", genErr)
		return Response{}, genErr
	}

	slog.InfoContext(ctx, "generated answer", "session", sessionId, "chars", len(answer))

	stage = StagePersisting
	s.persistAsync(ctx, sessionId, query, answer)

	stage = StageResponding
	return Response{
		Answer:    answer,
		Sources:   prompt.ExtractSources(ranked),
		SessionId: sessionId,
	}, nil
}

// Wait blocks until every detached history write has finished.
func (s *Service) Wait() {
	s.persist.Wait()
}

func (s *Service) retrieve(ctx context.Context, query string) (dense []document.Document, sparse []document.Document) {
	var wg sync.WaitGroup

	run := func(name string, r retriever.Retriever, out *[]document.Document) {
		defer wg.Done()

		*out = []document.Document{}

		defer func() {
			if p := recover(); p != nil {
				retrievalDegradedTotal.WithLabelValues(name).Inc()
				slog.ErrorContext(ctx, "retriever panicked", "retriever", name, "panic", p)
			}
		}()

		if r == nil {
			return
		}

		docs, err := r.Retrieve(ctx, query)
		if err != nil {
			retrievalDegradedTotal.WithLabelValues(name).Inc()
			slog.WarnContext(ctx, "retriever degraded", "retriever", name, "error", err)
		}
		if docs != nil {
			*out = docs
		}
	}

	wg.Add(2)
	go run("dense", s.options.Dense, &dense)
	go run("sparse", s.options.Sparse, &sparse)
	wg.Wait()

	return dense, sparse
}

func (s *Service) loadHistory(ctx context.Context, sessionId string) (history []message.Message) {
	if s.options.Memory == nil {
		return nil
	}

	defer func() {
		if p := recover(); p != nil {
			memoryDegradedTotal.WithLabelValues("load").Inc()
			slog.ErrorContext(ctx, "conversation history load panicked", "session", sessionId, "panic", p)
			history = nil
		}
	}()

	history, err := s.options.Memory.Load(ctx, sessionId)
	if err != nil {
		memoryDegradedTotal.WithLabelValues("load").Inc()
		slog.WarnContext(ctx, "failed to load conversation history", "session", sessionId, "error", err)
		return nil
	}

	return history
}

func (s *Service) generate(ctx context.Context, messages []message.Message) (string, error) {
	if s.options.Generator == nil {
		return "", upstreamUnavailable("inference endpoint is not available")
	}

	ctx, span := tracer.Start(ctx, "rag.generate")
	defer span.End()

	span.SetAttributes(attribute.Int("rag.generate.messages", len(messages)))

	answer, err := s.options.Generator.Generate(ctx, messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inference call failed")
		return "", internal(StageGenerating, "Internal server error", fmt.Errorf("inference failed: %w", err))
	}

	if len(strings.TrimSpace(answer)) == 0 {
		span.SetStatus(codes.Error, "empty completion")
		return "", internal(StageGenerating, "Internal server error", fmt.Errorf("inference returned an empty completion"))
	}

	return answer, nil
}

// persistAsync writes the exchange on a context detached from the request,
// so the caller neither waits on it nor cancels it.
func (s *Service) persistAsync(ctx context.Context, sessionId string, query string, answer string) {
	if s.options.Memory == nil {
		return
	}

	detached := context.WithoutCancel(ctx)

	s.persist.Add(1)

	go func() {
		defer s.persist.Done()

		err := s.appendHistory(detached, sessionId, query, answer)
		if err != nil {
			memoryDegradedTotal.WithLabelValues("append").Inc()
			slog.ErrorContext(detached, "failed to save conversation", "session", sessionId, "error", err)
		}

		if s.options.PersistHook != nil {
			s.options.PersistHook(sessionId, err)
		}
	}()
}

// appendHistory turns a panic in the memory layer into an error.
func (s *Service) appendHistory(ctx context.Context, sessionId string, query string, answer string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("conversation append panicked: %v", p)
		}
	}()

	return s.options.Memory.Append(ctx, sessionId, query, answer)
}

func New(opts ...Option) *Service {
	options := NewOptions(opts...)

	if options.Now == nil {
		options.Now = time.Now
	}

	return &Service{
		options: options,
	}
}
