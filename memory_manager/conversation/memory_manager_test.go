package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	memorymanager "github.com/w-h-a/rag/memory_manager"
	"github.com/w-h-a/rag/memory_manager/providers/kv/memory"
)

type stubKV struct {
	value  string
	found  bool
	getErr error
	putErr error

	putKey string
	putTTL time.Duration
}

func (s *stubKV) Get(ctx context.Context, key string) (string, bool, error) {
	return s.value, s.found, s.getErr
}

func (s *stubKV) Put(ctx context.Context, key string, value string, ttl time.Duration) error {
	s.putKey = key
	s.putTTL = ttl
	if s.putErr != nil {
		return s.putErr
	}
	s.value = value
	s.found = true
	return nil
}

func TestLoadAbsent(t *testing.T) {
	m := NewMemoryManager(memorymanager.WithKV(memory.NewKV()))

	history, err := m.Load(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if history == nil || len(history) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", history)
	}
}

func TestLoadCorrupted(t *testing.T) {
	m := NewMemoryManager(memorymanager.WithKV(&stubKV{value: "not json", found: true}))

	history, err := m.Load(context.Background(), "session-1")
	if err == nil {
		t.Fatalf("expected corruption to be reported")
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history on corruption, got %#v", history)
	}
}

func TestLoadStorageError(t *testing.T) {
	m := NewMemoryManager(memorymanager.WithKV(&stubKV{getErr: errors.New("connection refused")}))

	history, err := m.Load(context.Background(), "session-1")
	if err == nil || len(history) != 0 {
		t.Fatalf("expected empty history with error, got %#v %v", history, err)
	}
}

func TestAppendWindow(t *testing.T) {
	ctx := context.Background()

	for n := 1; n <= 8; n++ {
		t.Run(fmt.Sprintf("appends=%d", n), func(t *testing.T) {
			m := NewMemoryManager(memorymanager.WithKV(memory.NewKV()))

			for i := range n {
				if err := m.Append(ctx, "s", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}

			history, err := m.Load(ctx, "s")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			if want := min(2*n, 10); len(history) != want {
				t.Fatalf("len = %d, want %d", len(history), want)
			}

			// oldest pair goes first
			first := max(0, n-5)
			if history[0].Role != "user" || history[0].Content != fmt.Sprintf("q%d", first) {
				t.Fatalf("unexpected oldest entry %#v", history[0])
			}
			last := history[len(history)-1]
			if last.Role != "assistant" || last.Content != fmt.Sprintf("a%d", n-1) {
				t.Fatalf("unexpected newest entry %#v", last)
			}
		})
	}
}

func TestAppendTTLAndKey(t *testing.T) {
	store := &stubKV{}
	m := NewMemoryManager(memorymanager.WithKV(store))

	if err := m.Append(context.Background(), "session-9", "q", "a"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if store.putKey != "session-9" {
		t.Fatalf("unexpected key %q", store.putKey)
	}
	if store.putTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl %v", store.putTTL)
	}
}

func TestAppendOverCorruptedHistory(t *testing.T) {
	store := &stubKV{value: `[{"role":"robot"}]`, found: true}
	m := NewMemoryManager(memorymanager.WithKV(store))

	if err := m.Append(context.Background(), "s", "q", "a"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	history, err := memorymanager.Decode(store.value)
	if err != nil || len(history) != 2 {
		t.Fatalf("expected corrupted record to be replaced, got %#v %v", history, err)
	}
}

func TestAppendPutError(t *testing.T) {
	m := NewMemoryManager(memorymanager.WithKV(&stubKV{putErr: errors.New("read only")}))

	if err := m.Append(context.Background(), "s", "q", "a"); err == nil {
		t.Fatalf("expected put error to be returned")
	}
}
