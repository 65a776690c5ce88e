package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/serpforge/serpforge/internal/fetch"
	"github.com/serpforge/serpforge/internal/output"
	"github.com/serpforge/serpforge/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a search and print the results",
	Long: `Search Google in a real browser and print structured results.

The browser identity (device profile, locale, timezone, cookies) is
persisted in the state file and reused on the next run, so repeated
searches look like one returning user.

Examples:
  serpforge search "golang slog handler"
  serpforge search -l 5 -t 30000 "site:pkg.go.dev chromedp"
  serpforge search --format yaml --enrich "postgres vacuum tuning"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	flags := searchCmd.Flags()
	flags.IntP("limit", "l", search.DefaultLimit, "maximum number of results")
	flags.IntP("timeout", "t", search.DefaultTimeoutMs, "overall budget in milliseconds")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml")
	flags.Bool("enrich", false, "fetch result pages to fill in empty snippets")
}

func runSearch(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	query := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")
	timeout, _ := cmd.Flags().GetInt("timeout")

	engine := search.NewEngine()
	resp, err := engine.Search(ctx, search.Request{
		Query:       query,
		Limit:       limit,
		TimeoutMs:   timeout,
		StateFile:   viper.GetString("state_file"),
		NoSaveState: viper.GetBool("no_save_state"),
		Locale:      viper.GetString("locale"),
	})
	if resp == nil {
		return err
	}

	if enrich, _ := cmd.Flags().GetBool("enrich"); enrich && err == nil {
		search.EnrichResults(ctx, fetch.NewFetcher(), resp.Results)
	}

	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")
	if werr := writeDocument(format, outPath, resp); werr != nil {
		return werr
	}

	// The degraded single-result response was already printed; the run
	// still counts as failed.
	return err
}

// writeDocument serializes a document in the given format to a file, or
// stdout when path is empty.
func writeDocument(format, path string, doc any) error {
	f, err := output.ParseFormat(format)
	if err != nil {
		return err
	}

	dst := os.Stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer file.Close()
		dst = file
	}

	w, err := output.NewWriter(dst, f, true)
	if err != nil {
		return err
	}
	if err := w.Write(doc); err != nil {
		return err
	}
	return w.Flush()
}
