// Command arrivals runs the visitor arrivals pipeline: PDF extraction,
// transform job dispatch, the batch transform and the long-running service
// that wires them to object storage events.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/visitor-arrivals/pkg/config"
)

type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "arrivals",
		Short:         "Visitor arrivals report pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
			slog.SetDefault(a.logger)
			return nil
		},
	}

	root.AddCommand(
		newExtractCmd(a),
		newDispatchCmd(a),
		newTransformCmd(a),
		newMigrateCmd(a),
		newServeCmd(a),
	)
	return root
}
