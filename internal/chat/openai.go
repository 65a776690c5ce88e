package chat

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared/constant"

	"github.com/serpforge/serpforge/internal/logger"
)

type openaiProvider struct {
	client  openai.Client
	model   string
	history []openai.ChatCompletionMessageParamUnion
	tools   []openai.ChatCompletionToolUnionParam
}

func newOpenAIProvider(cfg Config) (*openaiProvider, error) {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}

	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(chatTools))
	for _, t := range chatTools {
		tools = append(tools, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  openai.FunctionParameters(t.Schema),
				},
				Type: constant.ValueOf[constant.Function](),
			},
		})
	}

	return &openaiProvider{
		client:  openai.NewClient(opts...),
		model:   model,
		history: []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)},
		tools:   tools,
	}, nil
}

func (p *openaiProvider) Name() string  { return "openai" }
func (p *openaiProvider) Model() string { return p.model }

func (p *openaiProvider) Send(ctx context.Context, userMsg string, invoke ToolInvoker) (string, error) {
	p.history = append(p.history, openai.UserMessage(userMsg))

	for round := 0; round < maxToolRounds; round++ {
		resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(p.model),
			Messages: p.history,
			Tools:    p.tools,
		})
		if err != nil {
			return "", fmt.Errorf("openai API error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("openai returned no choices")
		}

		msg := resp.Choices[0].Message
		p.history = append(p.history, msg.ToParam())

		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		for _, call := range msg.ToolCalls {
			logger.Info("model requested tool", "tool", call.Function.Name)
			payload, err := invoke(ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				payload = "Error: " + err.Error()
			}
			p.history = append(p.history, openai.ToolMessage(payload, call.ID))
		}
	}

	return "", fmt.Errorf("model exceeded %d tool rounds without answering", maxToolRounds)
}
