package generator

import (
	"strings"

	"github.com/w-h-a/rag/message"
)

// SplitSystem separates system instructions from the conversational turns for
// providers that take the system prompt out of band. Consecutive turns with
// the same role are merged and a leading assistant turn is dropped, so the
// result strictly alternates starting with the user.
func SplitSystem(messages []message.Message) (string, []message.Message) {
	var system []string
	turns := make([]message.Message, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == message.RoleSystem {
			system = append(system, msg.Content)
			continue
		}

		if len(turns) == 0 && msg.Role == message.RoleAssistant {
			continue
		}

		if n := len(turns); n > 0 && turns[n-1].Role == msg.Role {
			turns[n-1].Content += "\n\n" + msg.Content
			continue
		}

		turns = append(turns, msg)
	}

	return strings.Join(system, "\n\n"), turns
}
