package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/w-h-a/rag/document"
	"github.com/w-h-a/rag/message"
)

const (
	HistoryLimit     = 5
	SourcePreviewLen = 200
	unknownSource    = "unknown"
	contextDelimiter = "\n\n---\n\n"
	ellipsis         = "..."
)

const systemPrompt = `You are an AI assistant built to answer questions strictly using the information from retrieved documents.

### Important Guidelines:
- Use only information found in the context above.
- Do not use prior knowledge or external information — only what is in the context.
- If multiple pieces of context conflict, acknowledge this in your response.
- If there is not enough information to answer, say so explicitly.
- No guessing or hallucinating.
- Be objective, accurate, and concise.
- Quote and cite the source if necessary.`

const userPromptTemplate = `### Retrieved Context:
<context>
%s
</context>

### User Query:
<query>
%s
</query>

### How to Answer:
1. Use only information found in the context above.
2. Do not use prior knowledge or external information — only what is in the context.
3. If multiple pieces of context conflict, acknowledge this in your response.
4. If there is not enough information to answer, say so explicitly.

### Response Format:
<relevant_sources>
Summarize the exact parts of the retrieved context that are useful for answering the query.
List them in bullet point format.
</relevant_sources>

<response>
Write a clear, direct answer using only the information from the relevant_sources.
If the query cannot be answered, explain that and why.
</response>`

type SourceSummary struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// BuildPrompt returns the system instruction, up to the last five history
// entries in order, and the user turn carrying the context block.
func BuildPrompt(docs []document.Document, query string, history []message.Message) []message.Message {
	recent := history
	if len(recent) > HistoryLimit {
		recent = recent[len(recent)-HistoryLimit:]
	}

	messages := make([]message.Message, 0, len(recent)+2)

	messages = append(messages, message.Message{Role: message.RoleSystem, Content: systemPrompt})
	messages = append(messages, recent...)
	messages = append(messages, message.Message{
		Role:    message.RoleUser,
		Content: fmt.Sprintf(userPromptTemplate, Context(docs), query),
	})

	return messages
}

// Context renders ranked documents with 1-based headers.
func Context(docs []document.Document) string {
	blocks := make([]string, len(docs))

	for i, doc := range docs {
		blocks[i] = fmt.Sprintf("[Document %d - Source: %s]\n%s", i+1, sourceOf(doc), doc.Content)
	}

	return strings.Join(blocks, contextDelimiter)
}

// ExtractSources keeps the first 200 characters of each document and always
// appends an ellipsis.
func ExtractSources(docs []document.Document) []SourceSummary {
	sources := make([]SourceSummary, len(docs))

	for i, doc := range docs {
		sources[i] = SourceSummary{
			Source:  sourceOf(doc),
			Content: preview(doc.Content) + ellipsis,
		}
	}

	return sources
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= SourcePreviewLen {
		return content
	}

	runes := []rune(content)

	return string(runes[:SourcePreviewLen])
}

func sourceOf(doc document.Document) string {
	if len(doc.Source) == 0 {
		return unknownSource
	}
	return doc.Source
}
