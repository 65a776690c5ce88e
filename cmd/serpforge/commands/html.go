package commands

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/serpforge/serpforge/internal/search"
)

var htmlCmd = &cobra.Command{
	Use:   "html [query]",
	Short: "Capture the results page markup instead of extracting results",
	Long: `Run a search and return the sanitized HTML of the results page,
with stylesheets and scripts stripped. With --save the markup and a
full-page screenshot are written to disk and the response carries the
paths instead of the full body.

Examples:
  serpforge html "chromedp full screenshot"
  serpforge html --save -o page.html "cloudflare challenge types"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHTML,
}

func init() {
	rootCmd.AddCommand(htmlCmd)

	flags := htmlCmd.Flags()
	flags.IntP("timeout", "t", search.DefaultTimeoutMs, "overall budget in milliseconds")
	flags.Bool("save", false, "save the markup and a screenshot to disk")
	flags.StringP("output", "o", "", "file path for the saved markup (implies --save)")
	flags.String("format", "json", "output format: json, jsonl, yaml")
}

func runHTML(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	timeout, _ := cmd.Flags().GetInt("timeout")
	save, _ := cmd.Flags().GetBool("save")
	outPath, _ := cmd.Flags().GetString("output")

	engine := search.NewEngine()
	resp, err := engine.CaptureHTML(ctx, search.Request{
		Query:       strings.Join(args, " "),
		TimeoutMs:   timeout,
		StateFile:   viper.GetString("state_file"),
		NoSaveState: viper.GetBool("no_save_state"),
		Locale:      viper.GetString("locale"),
	}, search.HTMLOptions{
		SaveToFile: save || outPath != "",
		OutputPath: outPath,
	})
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")

	// When the markup went to a file, print the summary without the body.
	if resp.SavedPath != "" {
		return writeDocument(format, "", map[string]any{
			"query":                resp.Query,
			"url":                  resp.URL,
			"saved_path":           resp.SavedPath,
			"screenshot_path":      resp.ScreenshotPath,
			"original_html_length": resp.OriginalHTMLLength,
		})
	}
	return writeDocument(format, "", resp)
}
