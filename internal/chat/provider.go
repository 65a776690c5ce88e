// Package chat implements an interactive assistant that answers questions
// by calling the search engine in-process, driven by an LLM with tool
// calling.
package chat

import (
	"context"
	"fmt"
	"os"
)

const systemPrompt = "You are a helpful assistant with access to live web search. " +
	"When a question needs current information, call the google-search tool and " +
	"ground your answer in the results, citing result links."

// ToolInvoker executes a tool call made by the model and returns the
// payload handed back to it. A returned error is surfaced to the model as
// an error payload, not to the user.
type ToolInvoker func(ctx context.Context, name, argsJSON string) (string, error)

// Provider is a chat backend that owns its own conversation history and
// drives tool calls through the supplied invoker until the model answers
// in plain text.
type Provider interface {
	Name() string
	Model() string
	Send(ctx context.Context, userMsg string, invoke ToolInvoker) (string, error)
}

// Config holds provider construction parameters.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// maxToolRounds bounds a single Send: a model stuck in a tool-call loop
// is cut off rather than left searching forever.
const maxToolRounds = 8

type factory func(cfg Config) (Provider, error)

var registry = map[string]factory{
	"openai":    func(cfg Config) (Provider, error) { return newOpenAIProvider(cfg) },
	"anthropic": func(cfg Config) (Provider, error) { return newAnthropicProvider(cfg) },
}

// NewProvider creates a chat provider by name.
func NewProvider(name string, cfg Config) (Provider, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown chat provider: %s (available: anthropic, openai)", name)
	}
	return f(cfg)
}

// DetectProvider picks a provider from the environment, preferring
// Anthropic when both keys are present.
func DetectProvider() (name, apiKey string, err error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return "anthropic", key, nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return "openai", key, nil
	}
	return "", "", fmt.Errorf("no API key found: set ANTHROPIC_API_KEY or OPENAI_API_KEY")
}

// toolDef describes one tool exposed to the model. Both providers build
// their native tool parameters from this shape.
type toolDef struct {
	Name        string
	Description string
	Schema      map[string]any
}

var chatTools = []toolDef{
	{
		Name:        "google-search",
		Description: "Search Google in a real browser and return structured results as JSON.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
				"limit": map[string]any{
					"type":        "number",
					"description": "Maximum number of results (default 10)",
				},
			},
			"required": []string{"query"},
		},
	},
}
