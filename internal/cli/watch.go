package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rulescan/internal/pipeline"
	"github.com/ppiankov/rulescan/internal/watch"
	"github.com/ppiankov/rulescan/internal/worker"
)

var (
	watchThresholds thresholdFlags
	watchParams     miningFlags
	watchRun        runFlags
	watchJSON       string
	watchMD         string
	watchDebounce   time.Duration
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Rescan a dataset file every time it changes",
	Long: `Watch mines and scans a dataset file, then does it again whenever the
file is written. Bursts of writes are coalesced and rescans are rate
limited by watch.min_interval.

Example:
  rulescan watch baskets.csv --md report.md
  rulescan watch baskets.txt --lift 2 --debounce 500ms`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchJSON, "json", "", "rewrite this JSON report on every rescan")
	watchCmd.Flags().StringVar(&watchMD, "md", "", "rewrite this Markdown report on every rescan")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period that ends a burst of writes")

	watchThresholds.register(watchCmd)
	watchParams.register(watchCmd)
	watchRun.register(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	watchThresholds.apply(cmd, &cfg.Thresholds)
	watchParams.apply(cmd, &cfg.Mining)
	watchRun.apply(cmd, cfg)

	logger := newLogger()
	p, release := newPipeline(cfg, logger)
	defer release()

	throttle := worker.NewThrottle(cfg.Watch.MinInterval, cfg.Watch.Burst)
	w, err := watch.New(path, watchDebounce, throttle, logger)
	if err != nil {
		return err
	}

	out := pipeline.Outputs{JSONPath: watchJSON, MarkdownPath: watchMD}
	rescan := func(ctx context.Context) error {
		report, err := p.Run(ctx, path)
		if err != nil {
			// keep watching; the next save may fix the file
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", path, err)
			return nil
		}
		fmt.Fprintf(os.Stderr, "[%s] rescanned %s\n", time.Now().Format("15:04:05"), path)
		return p.RenderReport(report, out, true)
	}

	if err := rescan(ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "\nWatching %s (Ctrl-C to stop)\n", path)
	return w.Run(ctx, rescan)
}
