package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/serpforge/serpforge/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search tools over MCP on stdio",
	Long: `Run a Model Context Protocol server on stdio exposing two tools:
google-search (structured results) and get-webpage-html (sanitized
results-page markup). Agent runtimes spawn this command and talk to it
over stdin/stdout, so all logging goes to stderr.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := mcpserver.New(mcpserver.Options{
		StateFile:   viper.GetString("state_file"),
		NoSaveState: viper.GetBool("no_save_state"),
	})
	return srv.Run(ctx)
}
