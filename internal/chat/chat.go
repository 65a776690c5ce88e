package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/serpforge/serpforge/internal/search"
)

// Session runs an interactive chat whose tool calls execute searches
// in-process, sharing one engine (and so one browser identity) for the
// whole conversation.
type Session struct {
	provider Provider
	engine   *search.Engine

	// StateFile is the browser-state path used for tool-call searches.
	StateFile string
}

// NewSession creates a chat session around a provider and a fresh engine.
func NewSession(provider Provider, stateFile string) *Session {
	return &Session{
		provider:  provider,
		engine:    search.NewEngine(),
		StateFile: stateFile,
	}
}

// Run reads user turns from in and writes assistant replies to out until
// EOF or an exit command.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "serpforge chat (%s/%s). Type 'exit' or Ctrl-D to quit.\n\n",
		s.provider.Name(), s.provider.Model())

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		reply, err := s.provider.Send(ctx, line, s.invokeTool)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n\n", err)
			continue
		}
		fmt.Fprintf(out, "%s\n\n", reply)
	}
}

// invokeTool dispatches a model tool call to the search engine and
// returns the JSON payload the model sees.
func (s *Session) invokeTool(ctx context.Context, name, argsJSON string) (string, error) {
	switch name {
	case "google-search":
		var args struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("bad tool arguments: %w", err)
		}
		resp, err := s.engine.Search(ctx, search.Request{
			Query:     args.Query,
			Limit:     args.Limit,
			StateFile: s.StateFile,
		})
		if resp == nil {
			return "", err
		}
		payload, err := json.Marshal(resp)
		if err != nil {
			return "", err
		}
		return string(payload), nil
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}
