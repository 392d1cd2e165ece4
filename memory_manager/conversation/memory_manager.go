package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	memorymanager "github.com/w-h-a/rag/memory_manager"
	"github.com/w-h-a/rag/message"
)

type conversationMemoryManager struct {
	options memorymanager.Options
}

func (m *conversationMemoryManager) Load(ctx context.Context, sessionId string) ([]message.Message, error) {
	raw, ok, err := m.options.KV.Get(ctx, sessionId)
	if err != nil {
		return []message.Message{}, fmt.Errorf("load history for %s: %w", sessionId, err)
	}

	if !ok || len(raw) == 0 {
		return []message.Message{}, nil
	}

	history, err := memorymanager.Decode(raw)
	if err != nil {
		return []message.Message{}, fmt.Errorf("load history for %s: %w", sessionId, err)
	}

	return history, nil
}

// Append is read-modify-write without a per-session lock, so concurrent
// appends to the same session are last-write-wins.
func (m *conversationMemoryManager) Append(ctx context.Context, sessionId string, userText string, assistantText string) error {
	existing, err := m.Load(ctx, sessionId)
	if err != nil {
		slog.WarnContext(ctx, "starting from empty history", "session", sessionId, "error", err)
	}

	updated := make([]message.Message, 0, len(existing)+2)
	updated = append(updated, existing...)
	updated = append(updated,
		message.Message{Role: message.RoleUser, Content: userText},
		message.Message{Role: message.RoleAssistant, Content: assistantText},
	)

	raw, err := memorymanager.Encode(memorymanager.Truncate(updated, m.options.WindowSize))
	if err != nil {
		return fmt.Errorf("save history for %s: %w", sessionId, err)
	}

	if err := m.options.KV.Put(ctx, sessionId, raw, m.options.TTL); err != nil {
		return fmt.Errorf("save history for %s: %w", sessionId, err)
	}

	return nil
}

func NewMemoryManager(opts ...memorymanager.Option) memorymanager.MemoryManager {
	options := memorymanager.NewOptions(opts...)

	if options.KV == nil {
		detail := "conversation memory manager requires a kv store"
		slog.ErrorContext(options.Context, detail, "error", errors.New("nil kv"))
		panic(detail)
	}

	return &conversationMemoryManager{
		options: options,
	}
}
