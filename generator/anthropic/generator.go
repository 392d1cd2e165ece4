package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/w-h-a/rag/generator"
	"github.com/w-h-a/rag/message"
)

const defaultModel = "claude-3-5-haiku-latest"

type anthropicGenerator struct {
	options generator.Options
	client  *anthropic.Client
}

func (g *anthropicGenerator) Generate(ctx context.Context, messages []message.Message) (string, error) {
	system, turns := generator.SplitSystem(messages)
	if len(turns) == 0 {
		return "", errors.New("no user message to send to Anthropic")
	}

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.options.Model),
		MaxTokens: int64(g.options.MaxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(turns)),
	}

	if len(system) > 0 {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}

	for _, turn := range turns {
		block := anthropic.NewTextBlock(turn.Content)
		if turn.Role == message.RoleAssistant {
			req.Messages = append(req.Messages, anthropic.NewAssistantMessage(block))
		} else {
			req.Messages = append(req.Messages, anthropic.NewUserMessage(block))
		}
	}

	rsp, err := g.client.Messages.New(ctx, req)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	result := b.String()
	if len(result) == 0 {
		return "", errors.New("no response from Anthropic")
	}

	return result, nil
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	if len(options.Model) == 0 {
		options.Model = defaultModel
	}

	g := &anthropicGenerator{
		options: options,
	}

	clientOpts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(options.ApiKey)}
	if len(options.BaseURL) > 0 {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(options.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)

	g.client = &client

	return g
}
