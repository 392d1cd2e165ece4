package memorymanager

import (
	"context"

	"github.com/w-h-a/rag/message"
)

// MemoryManager keeps a short rolling window of conversation turns per
// session. Load always returns a usable slice; a non-nil error only reports
// that the history could not be read and an empty one was substituted.
type MemoryManager interface {
	Load(ctx context.Context, sessionId string) ([]message.Message, error)
	Append(ctx context.Context, sessionId string, userText string, assistantText string) error
}
