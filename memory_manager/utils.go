package memorymanager

import (
	"encoding/json"
	"fmt"

	"github.com/w-h-a/rag/message"
)

// Truncate keeps the most recent size messages.
func Truncate(history []message.Message, size int) []message.Message {
	if size < 0 {
		size = 0
	}
	if len(history) <= size {
		return history
	}
	return history[len(history)-size:]
}

// Decode parses a stored history record. Any entry with an unknown role or a
// malformed shape makes the whole record corrupt.
func Decode(raw string) ([]message.Message, error) {
	var history []message.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	for i, msg := range history {
		if !message.IsValidRole(msg.Role) {
			return nil, fmt.Errorf("decode history: entry %d has invalid role %q", i, msg.Role)
		}
	}

	return history, nil
}

func Encode(history []message.Message) (string, error) {
	if history == nil {
		history = []message.Message{}
	}

	data, err := json.Marshal(history)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
