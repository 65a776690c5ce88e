package chat

import (
	"context"
	"strings"
	"testing"
)

func TestNewProvider_UnknownName(t *testing.T) {
	_, err := NewProvider("cohere", Config{})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "anthropic") {
		t.Errorf("error should list available providers: %v", err)
	}
}

func TestDetectProvider(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	if _, _, err := DetectProvider(); err == nil {
		t.Error("expected error with no API keys set")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	name, key, err := DetectProvider()
	if err != nil {
		t.Fatalf("DetectProvider() error = %v", err)
	}
	if name != "openai" || key != "sk-test" {
		t.Errorf("got (%q, %q)", name, key)
	}

	// Anthropic wins when both are present.
	t.Setenv("ANTHROPIC_API_KEY", "ant-test")
	name, key, err = DetectProvider()
	if err != nil {
		t.Fatal(err)
	}
	if name != "anthropic" || key != "ant-test" {
		t.Errorf("got (%q, %q)", name, key)
	}
}

func TestInvokeTool_UnknownTool(t *testing.T) {
	s := NewSession(nil, "")
	if _, err := s.invokeTool(context.Background(), "make-coffee", "{}"); err == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestInvokeTool_BadArguments(t *testing.T) {
	s := NewSession(nil, "")
	if _, err := s.invokeTool(context.Background(), "google-search", "{not json"); err == nil {
		t.Error("expected error for malformed arguments")
	}
}

// stubProvider answers every turn with a canned reply, optionally making
// one tool call first.
type stubProvider struct {
	reply    string
	toolName string
	toolArgs string
	invoked  []string
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Model() string { return "stub-1" }

func (s *stubProvider) Send(ctx context.Context, userMsg string, invoke ToolInvoker) (string, error) {
	if s.toolName != "" {
		payload, err := invoke(ctx, s.toolName, s.toolArgs)
		if err != nil {
			payload = "Error: " + err.Error()
		}
		s.invoked = append(s.invoked, payload)
	}
	return s.reply, nil
}

func TestSessionRun_EchoAndExit(t *testing.T) {
	provider := &stubProvider{reply: "the answer is 42"}
	s := NewSession(provider, "")

	in := strings.NewReader("what is the answer\nexit\n")
	var out strings.Builder
	if err := s.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.Contains(out.String(), "the answer is 42") {
		t.Errorf("reply not printed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "stub/stub-1") {
		t.Errorf("banner missing provider/model:\n%s", out.String())
	}
}

func TestSessionRun_ToolErrorsReachTheModelNotTheUser(t *testing.T) {
	provider := &stubProvider{reply: "done", toolName: "make-coffee", toolArgs: "{}"}
	s := NewSession(provider, "")

	in := strings.NewReader("brew\nexit\n")
	var out strings.Builder
	if err := s.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(provider.invoked) != 1 || !strings.Contains(provider.invoked[0], "unknown tool") {
		t.Errorf("tool error not fed back to the model: %v", provider.invoked)
	}
	if strings.Contains(out.String(), "unknown tool") {
		t.Errorf("tool error leaked to the user:\n%s", out.String())
	}
}

func TestChatTools_SchemaShape(t *testing.T) {
	for _, tool := range chatTools {
		if tool.Name == "" || tool.Description == "" {
			t.Errorf("tool missing name or description: %+v", tool)
		}
		props, ok := tool.Schema["properties"].(map[string]any)
		if !ok || len(props) == 0 {
			t.Errorf("tool %s has no properties", tool.Name)
		}
		if _, ok := tool.Schema["required"].([]string); !ok {
			t.Errorf("tool %s required list has wrong type", tool.Name)
		}
	}
}
