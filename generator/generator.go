package generator

import (
	"context"

	"github.com/w-h-a/rag/message"
)

// Generator turns an ordered conversation into a single completion.
type Generator interface {
	Generate(ctx context.Context, messages []message.Message) (string, error)
}
