// Package commands implements the CLI commands for serpforge.
package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/serpforge/serpforge/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "serpforge",
	Short: "Browser-driven Google search with bot-verification evasion",
	Long: `Serpforge runs Google searches in a real browser, keeps a persistent
browser identity across runs, and recovers from bot-verification pages
by escalating to a visible browser window once per search.

Examples:
  # Search and print results as JSON
  serpforge search "golang context cancellation"

  # More results, custom state file
  serpforge search -l 20 --state-file /tmp/state.json "rust async"

  # Capture the raw results page instead of extracting results
  serpforge html --save "webassembly gc proposal"

  # Serve the search as MCP tools on stdio
  serpforge serve`,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default $HOME/.serpforge.yaml)")
	pf.Bool("debug", false, "enable debug logging")
	pf.BoolP("quiet", "q", false, "only log errors")
	pf.Bool("json-logs", false, "log as JSON")
	pf.String("state-file", "", "browser state file (default ./browser-state.json)")
	pf.Bool("no-save-state", false, "do not persist browser state after the run")
	pf.String("locale", "", "browser locale override (default from $LANG)")

	_ = viper.BindPFlag("debug", pf.Lookup("debug"))
	_ = viper.BindPFlag("quiet", pf.Lookup("quiet"))
	_ = viper.BindPFlag("json_logs", pf.Lookup("json-logs"))
	_ = viper.BindPFlag("state_file", pf.Lookup("state-file"))
	_ = viper.BindPFlag("no_save_state", pf.Lookup("no-save-state"))
	_ = viper.BindPFlag("locale", pf.Lookup("locale"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".serpforge")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SERPFORGE")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// initLogger applies the logging flags. Called by every RunE.
func initLogger() {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("json_logs"),
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
