package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/serpforge/serpforge/internal/logger"
)

type anthropicProvider struct {
	client  anthropic.Client
	model   string
	history []anthropic.MessageParam
	tools   []anthropic.ToolUnionParam
}

func newAnthropicProvider(cfg Config) (*anthropicProvider, error) {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}

	tools := make([]anthropic.ToolUnionParam, 0, len(chatTools))
	for _, t := range chatTools {
		properties, _ := t.Schema["properties"].(map[string]any)
		required, _ := t.Schema["required"].([]string)
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Type:       "object",
					Properties: properties,
					Required:   required,
				},
			},
		})
	}

	return &anthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
		tools:  tools,
	}, nil
}

func (p *anthropicProvider) Name() string  { return "anthropic" }
func (p *anthropicProvider) Model() string { return p.model }

func (p *anthropicProvider) Send(ctx context.Context, userMsg string, invoke ToolInvoker) (string, error) {
	p.history = append(p.history, anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)))

	for round := 0; round < maxToolRounds; round++ {
		resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(p.model),
			MaxTokens: 4096,
			System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
			Messages:  p.history,
			Tools:     p.tools,
		})
		if err != nil {
			return "", fmt.Errorf("anthropic API error: %w", err)
		}

		p.history = append(p.history, resp.ToParam())

		if resp.StopReason != anthropic.StopReasonToolUse {
			var text strings.Builder
			for _, block := range resp.Content {
				if b, ok := block.AsAny().(anthropic.TextBlock); ok {
					text.WriteString(b.Text)
				}
			}
			return text.String(), nil
		}

		var results []anthropic.ContentBlockParamUnion
		for _, block := range resp.Content {
			use, ok := block.AsAny().(anthropic.ToolUseBlock)
			if !ok {
				continue
			}
			logger.Info("model requested tool", "tool", use.Name)

			args, err := json.Marshal(use.Input)
			if err != nil {
				results = append(results, anthropic.NewToolResultBlock(use.ID, "Error: bad tool arguments", true))
				continue
			}
			payload, err := invoke(ctx, use.Name, string(args))
			if err != nil {
				results = append(results, anthropic.NewToolResultBlock(use.ID, "Error: "+err.Error(), true))
				continue
			}
			results = append(results, anthropic.NewToolResultBlock(use.ID, payload, false))
		}
		p.history = append(p.history, anthropic.NewUserMessage(results...))
	}

	return "", fmt.Errorf("model exceeded %d tool rounds without answering", maxToolRounds)
}
