package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rulescan/internal/api"
)

var (
	serveAddr string
	serveRun  runFlags
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scan and mine operations over HTTP",
	Long: `Serve exposes:
  GET  /healthz
  POST /v1/scan   {"records": [...], "thresholds": {...}}
  POST /v1/mine   {"transactions": [[...]], "params": {...}, "thresholds": {...}}

Example:
  rulescan serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveRun.register(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	serveRun.apply(cmd, cfg)
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logger := newLogger()
	p, release := newPipeline(cfg, logger)
	defer release()

	fmt.Fprintf(os.Stderr, "Serving on %s\n", cfg.Server.Addr)
	return api.NewServer(p, cfg, logger).ListenAndServe(ctx)
}
