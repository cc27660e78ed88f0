package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rulescan/internal/pipeline"
)

var (
	mineThresholds thresholdFlags
	mineParams     miningFlags
	mineRun        runFlags
	outJSON        string
	outMD          string
	outHTML        string
	mineTimeout    time.Duration
)

// mineCmd represents the mine command
var mineCmd = &cobra.Command{
	Use:   "mine <input>",
	Short: "Mine a basket dataset and scan the resulting rules",
	Long: `Mine loads a basket dataset, runs Apriori, scans the rule records
against the thresholds and writes a report.

<input> is a file (.txt/.basket lines, .csv, .xlsx, .html), an http(s)
URL, "sample:grocery" (the six-basket grocery example) or "synthetic"
(generated baskets with planted patterns).

Example:
  rulescan mine sample:grocery
  rulescan mine baskets.csv --min-support 0.05 --lift 3 --md report.md
  rulescan mine https://example.com/baskets.csv --html report.html
  rulescan mine synthetic --llm-provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runMine,
}

func init() {
	rootCmd.AddCommand(mineCmd)

	mineCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path (empty to skip)")
	mineCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	mineCmd.Flags().StringVar(&outHTML, "html", "", "output HTML path (optional)")
	mineCmd.Flags().DurationVar(&mineTimeout, "timeout", 2*time.Minute, "overall timeout")

	mineThresholds.register(mineCmd)
	mineParams.register(mineCmd)
	mineRun.register(mineCmd)
}

func runMine(cmd *cobra.Command, args []string) error {
	input := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), mineTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mineThresholds.apply(cmd, &cfg.Thresholds)
	mineParams.apply(cmd, &cfg.Mining)
	mineRun.apply(cmd, cfg)

	if verbose {
		fmt.Fprintf(os.Stderr, "Mining: %s\n", input)
		fmt.Fprintf(os.Stderr, "Min support: %g\n", cfg.Mining.MinSupport)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p, release := newPipeline(cfg, newLogger())
	defer release()

	report, err := p.Run(ctx, input)
	if err != nil {
		return fmt.Errorf("mine failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Loaded %d baskets (%d items)\n", report.Transactions, report.Items)
		fmt.Fprintf(os.Stderr, "✓ Mined %d rule records (cached: %v)\n", len(report.Records), report.CacheHit)
		fmt.Fprintf(os.Stderr, "✓ Calculated coverage index: %d/100\n", report.Score.Index)
		if report.LLM != nil && report.LLM.Enabled {
			fmt.Fprintf(os.Stderr, "✓ Generated LLM summary using %s/%s\n", report.LLM.Provider, report.LLM.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	out := pipeline.Outputs{JSONPath: outJSON, MarkdownPath: outMD, HTMLPath: outHTML}
	if err := p.RenderReport(report, out, true); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
