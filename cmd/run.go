package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/raikusim/slotmarket/pkg/api"
	"github.com/raikusim/slotmarket/pkg/coordinator"
	"github.com/raikusim/slotmarket/pkg/ledger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the marketplace",
	Long: `Starts the slot marketplace: the tick loop that advances slots and
resolves auctions, and the HTTP API for bidders.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		clk := clock.New()

		led := ledger.NewInMemory(cfg.Ledger.StartingBalance(), logger)
		metrics := coordinator.NewMetrics(prometheus.DefaultRegisterer)

		coord := coordinator.New(cfg, clk, led, metrics, logger)
		coord.Start(ctx)
		defer coord.Stop()

		srv := api.NewServer(&cfg.Server, coord, clk, logger)
		srv.Start(ctx)

		logger.WithFields(logrus.Fields{
			"slot_duration_ms": cfg.Marketplace.SlotDurationMS,
			"base_fee_sol":     cfg.Marketplace.BaseFeeSOL,
			"slot_window":      cfg.Marketplace.SlotWindow,
		}).Info("Marketplace is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Info("Received shutdown signal")
		case <-ctx.Done():
			logger.Info("Context cancelled")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		srv.Stop(shutdownCtx)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
