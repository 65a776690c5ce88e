package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/serpforge/serpforge/internal/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with an LLM that can run live searches",
	Long: `Start an interactive chat session. The model can call the search
engine as a tool, so answers are grounded in live results. The provider
is picked from ANTHROPIC_API_KEY or OPENAI_API_KEY unless given
explicitly.

Examples:
  serpforge chat
  serpforge chat -p openai -m gpt-4o`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	flags := chatCmd.Flags()
	flags.StringP("provider", "p", "", "chat provider: anthropic, openai (auto-detects from env)")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use env var)")
	flags.String("base-url", "", "custom API base URL")
}

func runChat(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	name, _ := cmd.Flags().GetString("provider")
	apiKey, _ := cmd.Flags().GetString("api-key")
	if name == "" {
		detected, detectedKey, err := chat.DetectProvider()
		if err != nil {
			return err
		}
		name = detected
		if apiKey == "" {
			apiKey = detectedKey
		}
	}

	model, _ := cmd.Flags().GetString("model")
	baseURL, _ := cmd.Flags().GetString("base-url")
	provider, err := chat.NewProvider(name, chat.Config{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   model,
	})
	if err != nil {
		return err
	}

	session := chat.NewSession(provider, viper.GetString("state_file"))
	return session.Run(ctx, os.Stdin, os.Stdout)
}
