package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/w-h-a/rag/document"
	"github.com/w-h-a/rag/message"
	"github.com/w-h-a/rag/retriever"
)

type stubRetriever struct {
	docs  []document.Document
	err   error
	panic bool
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string) ([]document.Document, error) {
	if s.panic {
		panic("boom")
	}
	return s.docs, s.err
}

type stubGenerator struct {
	answer string
	err    error
	got    []message.Message
}

func (s *stubGenerator) Generate(ctx context.Context, messages []message.Message) (string, error) {
	s.got = messages
	return s.answer, s.err
}

type appended struct {
	sessionId string
	user      string
	assistant string
	ctxErr    error
}

type stubMemory struct {
	history   []message.Message
	loadErr   error
	appendErr error
	release   chan struct{}

	mtx      sync.Mutex
	loadedId string
	appends  []appended
}

func (s *stubMemory) Load(ctx context.Context, sessionId string) ([]message.Message, error) {
	s.mtx.Lock()
	s.loadedId = sessionId
	s.mtx.Unlock()
	return s.history, s.loadErr
}

func (s *stubMemory) Append(ctx context.Context, sessionId string, userText string, assistantText string) error {
	if s.release != nil {
		<-s.release
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.appends = append(s.appends, appended{sessionId, userText, assistantText, ctx.Err()})
	return s.appendErr
}

func docs(ids ...string) []document.Document {
	out := make([]document.Document, len(ids))
	for i, id := range ids {
		out[i] = document.Document{Id: id, Content: "body of " + id, Source: strings.ToLower(id) + ".md"}
	}
	return out
}

func TestQueryEndToEnd(t *testing.T) {
	gen := &stubGenerator{answer: "RL is learning from rewards."}
	mem := &stubMemory{history: []message.Message{{Role: message.RoleUser, Content: "earlier"}, {Role: message.RoleAssistant, Content: "reply"}}}

	var hookMtx sync.Mutex
	var hookErr error
	hookCalled := false

	svc := New(
		WithDenseRetriever(&stubRetriever{docs: docs("D1", "D2")}),
		WithSparseRetriever(&stubRetriever{docs: docs("D2", "D3")}),
		WithGenerator(gen),
		WithMemory(mem),
		WithPersistHook(func(sessionId string, err error) {
			hookMtx.Lock()
			defer hookMtx.Unlock()
			hookCalled = true
			hookErr = err
		}),
	)

	rsp, err := svc.Query(context.Background(), Request{Query: "What is reinforcement learning?", SessionId: "s-1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	svc.Wait()

	if rsp.Answer != "RL is learning from rewards." {
		t.Fatalf("unexpected answer %q", rsp.Answer)
	}

	var sources []string
	for _, s := range rsp.Sources {
		sources = append(sources, s.Source)
	}
	if strings.Join(sources, ",") != "d2.md,d1.md,d3.md" {
		t.Fatalf("unexpected source order %v", sources)
	}

	if len(gen.got) != 4 {
		t.Fatalf("expected system + 2 history + user, got %d messages", len(gen.got))
	}
	user := gen.got[len(gen.got)-1].Content
	for _, header := range []string{"[Document 1 - Source: d2.md]", "[Document 2 - Source: d1.md]", "[Document 3 - Source: d3.md]"} {
		if !strings.Contains(user, header) {
			t.Fatalf("missing header %q in prompt", header)
		}
	}
	if strings.Contains(user, "[Document 4") {
		t.Fatalf("expected exactly 3 documents in the context block")
	}

	if mem.loadedId != "s-1" {
		t.Fatalf("history loaded for %q", mem.loadedId)
	}
	if len(mem.appends) != 1 || mem.appends[0] != (appended{"s-1", "What is reinforcement learning?", "RL is learning from rewards.", nil}) {
		t.Fatalf("unexpected appends %#v", mem.appends)
	}

	hookMtx.Lock()
	defer hookMtx.Unlock()
	if !hookCalled || hookErr != nil {
		t.Fatalf("persist hook called=%v err=%v", hookCalled, hookErr)
	}
}

func TestQueryBadRequest(t *testing.T) {
	gen := &stubGenerator{answer: "x"}
	svc := New(WithGenerator(gen))

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := svc.Query(context.Background(), Request{Query: q})
		if !errors.Is(err, ErrBadRequest) {
			t.Fatalf("query %q: expected ErrBadRequest, got %v", q, err)
		}

		var perr *Error
		if !errors.As(err, &perr) || perr.Message != "Missing or invalid query" {
			t.Fatalf("unexpected error shape %#v", err)
		}
	}

	if gen.got != nil {
		t.Fatalf("generator should not be called for bad requests")
	}
}

func TestQueryGeneratorUnavailable(t *testing.T) {
	mem := &stubMemory{}
	svc := New(
		WithDenseRetriever(&stubRetriever{docs: docs("D1")}),
		WithMemory(mem),
	)

	rsp, err := svc.Query(context.Background(), Request{Query: "anything"})
	svc.Wait()

	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "inference endpoint is not available") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if rsp.Answer != "" || rsp.Sources != nil {
		t.Fatalf("no partial answer expected, got %#v", rsp)
	}
	if len(mem.appends) != 0 {
		t.Fatalf("nothing should be persisted on failure")
	}
}

func TestQueryGeneratorFailure(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
		want string
	}{
		{name: "call error", gen: &stubGenerator{err: errors.New("503 from provider")}, want: "503 from provider"},
		{name: "empty completion", gen: &stubGenerator{answer: "  "}, want: "empty completion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(WithGenerator(tt.gen))

			_, err := svc.Query(context.Background(), Request{Query: "q"})
			if !errors.Is(err, ErrInternal) {
				t.Fatalf("expected ErrInternal, got %v", err)
			}

			var perr *Error
			if !errors.As(err, &perr) || !strings.Contains(perr.Details, tt.want) || perr.Stage != StageGenerating {
				t.Fatalf("unexpected error %#v", err)
			}
		})
	}
}

func TestQueryRetrieverIsolation(t *testing.T) {
	before := testutil.ToFloat64(retrievalDegradedTotal.WithLabelValues("dense"))

	gen := &stubGenerator{answer: "ok"}
	svc := New(
		WithDenseRetriever(&stubRetriever{err: retriever.Degraded("dense embed query", errors.New("401"))}),
		WithSparseRetriever(&stubRetriever{docs: docs("S1", "S2")}),
		WithGenerator(gen),
	)

	rsp, err := svc.Query(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rsp.Sources) != 2 || rsp.Sources[0].Source != "s1.md" {
		t.Fatalf("expected sparse results only, got %#v", rsp.Sources)
	}

	if got := testutil.ToFloat64(retrievalDegradedTotal.WithLabelValues("dense")) - before; got != 1 {
		t.Fatalf("expected one dense degradation, got %v", got)
	}
}

func TestQueryBothRetrieversFail(t *testing.T) {
	gen := &stubGenerator{answer: "I do not have enough information."}
	svc := New(
		WithDenseRetriever(&stubRetriever{panic: true}),
		WithSparseRetriever(&stubRetriever{err: errors.New("no such table")}),
		WithGenerator(gen),
	)

	rsp, err := svc.Query(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if rsp.Answer == "" || len(rsp.Sources) != 0 {
		t.Fatalf("expected ungrounded answer with no sources, got %#v", rsp)
	}
	if !strings.Contains(gen.got[len(gen.got)-1].Content, "<context>\n\n</context>") {
		t.Fatalf("expected empty context block")
	}
}

func TestQueryMemoryLoadFailureIgnored(t *testing.T) {
	gen := &stubGenerator{answer: "ok"}
	svc := New(
		WithGenerator(gen),
		WithMemory(&stubMemory{loadErr: errors.New("redis down")}),
	)

	if _, err := svc.Query(context.Background(), Request{Query: "q"}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	svc.Wait()

	if len(gen.got) != 2 {
		t.Fatalf("expected no history in the prompt, got %d messages", len(gen.got))
	}
}

func TestQueryPersistIsDetached(t *testing.T) {
	mem := &stubMemory{release: make(chan struct{}), appendErr: errors.New("write failed")}

	hookErrs := make(chan error, 1)

	svc := New(
		WithGenerator(&stubGenerator{answer: "ok"}),
		WithMemory(mem),
		WithPersistHook(func(sessionId string, err error) { hookErrs <- err }),
	)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := svc.Query(ctx, Request{Query: "q", SessionId: "s"}); err != nil {
			t.Errorf("Query: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Query waited on the history write")
	}

	cancel()
	close(mem.release)
	svc.Wait()

	if err := <-hookErrs; err == nil || err.Error() != "write failed" {
		t.Fatalf("expected append error on the hook, got %v", err)
	}
	if len(mem.appends) != 1 || mem.appends[0].ctxErr != nil {
		t.Fatalf("append should run on a context that outlives the request, got %#v", mem.appends)
	}
}

func TestQuerySynthesizesSessionId(t *testing.T) {
	mem := &stubMemory{}

	svc := New(
		WithGenerator(&stubGenerator{answer: "ok"}),
		WithMemory(mem),
	)

	rsp, err := svc.Query(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	svc.Wait()

	suffix, ok := strings.CutPrefix(rsp.SessionId, "session-")
	if !ok {
		t.Fatalf("unexpected session id %q", rsp.SessionId)
	}
	if _, err := uuid.Parse(suffix); err != nil {
		t.Fatalf("session suffix %q is not a uuid: %v", suffix, err)
	}
	if mem.loadedId != rsp.SessionId || mem.appends[0].sessionId != rsp.SessionId {
		t.Fatalf("history used %q / %q", mem.loadedId, mem.appends[0].sessionId)
	}

	other, err := svc.Query(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	svc.Wait()

	if other.SessionId == rsp.SessionId {
		t.Fatalf("anonymous requests share session %q", rsp.SessionId)
	}
}

type panickingMemory struct {
	onLoad   bool
	onAppend bool
}

func (p *panickingMemory) Load(ctx context.Context, sessionId string) ([]message.Message, error) {
	if p.onLoad {
		panic("kv load")
	}
	return nil, nil
}

func (p *panickingMemory) Append(ctx context.Context, sessionId string, userText string, assistantText string) error {
	if p.onAppend {
		panic("kv append")
	}
	return nil
}

func TestQueryMemoryLoadPanicIgnored(t *testing.T) {
	before := testutil.ToFloat64(memoryDegradedTotal.WithLabelValues("load"))

	gen := &stubGenerator{answer: "ok"}
	svc := New(
		WithGenerator(gen),
		WithMemory(&panickingMemory{onLoad: true}),
	)

	rsp, err := svc.Query(context.Background(), Request{Query: "q", SessionId: "s"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	svc.Wait()

	if rsp.Answer != "ok" {
		t.Fatalf("unexpected answer %q", rsp.Answer)
	}
	if len(gen.got) != 2 {
		t.Fatalf("expected no history in the prompt, got %d messages", len(gen.got))
	}
	if got := testutil.ToFloat64(memoryDegradedTotal.WithLabelValues("load")) - before; got != 1 {
		t.Fatalf("expected one load degradation, got %v", got)
	}
}

func TestQueryMemoryAppendPanicContained(t *testing.T) {
	before := testutil.ToFloat64(memoryDegradedTotal.WithLabelValues("append"))

	hookErrs := make(chan error, 1)

	svc := New(
		WithGenerator(&stubGenerator{answer: "ok"}),
		WithMemory(&panickingMemory{onAppend: true}),
		WithPersistHook(func(sessionId string, err error) { hookErrs <- err }),
	)

	if _, err := svc.Query(context.Background(), Request{Query: "q", SessionId: "s"}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	svc.Wait()

	if err := <-hookErrs; err == nil || !strings.Contains(err.Error(), "kv append") {
		t.Fatalf("expected the panic on the hook as an error, got %v", err)
	}
	if got := testutil.ToFloat64(memoryDegradedTotal.WithLabelValues("append")) - before; got != 1 {
		t.Fatalf("expected one append degradation, got %v", got)
	}
}

func TestOutcome(t *testing.T) {
	tests := map[string]error{
		"ok":                   nil,
		"bad_request":          badRequest("x"),
		"upstream_unavailable": upstreamUnavailable("x"),
		"internal_error":       internal(StageGenerating, "x", nil),
	}
	for want, err := range tests {
		if got := Outcome(err); got != want {
			t.Errorf("Outcome(%v) = %q, want %q", err, got, want)
		}
	}
}
