// Package cmd implements the CLI commands for slotmarket.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raikusim/slotmarket/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *logrus.Logger
	v       *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "slotmarket",
	Short: "Blockspace slot marketplace simulator",
	Long: `Slotmarket simulates a marketplace for discrete blockspace slots in
which bidders compete for guaranteed inclusion through just-in-time and
ahead-of-time auctions.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogger()

		return initConfig()
	},
}

func init() {
	v = viper.New()

	defaults := config.DefaultConfig()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().String("host", "", "HTTP listen host")
	rootCmd.PersistentFlags().Int("port", 0, "HTTP listen port")
	rootCmd.PersistentFlags().StringSlice("cors-origins", nil, "Allowed CORS origins")
	rootCmd.PersistentFlags().Int("slot-window", defaults.Marketplace.SlotWindow, "Number of tracked slots")
	rootCmd.PersistentFlags().Int64("slot-duration-ms", defaults.Marketplace.SlotDurationMS, "Slot duration in milliseconds")
	rootCmd.PersistentFlags().Int64("advance-slot-interval-ms", defaults.Marketplace.AdvanceSlotIntervalMS, "Tick interval in milliseconds")
	rootCmd.PersistentFlags().String("base-fee-sol", defaults.Marketplace.BaseFeeSOL, "Base fee per slot in SOL")
	rootCmd.PersistentFlags().Uint64("cu-per-slot", defaults.Marketplace.CUPerSlot, "Compute units per slot")
	rootCmd.PersistentFlags().Int64("aot-duration-sec", defaults.Auction.AotDurationSec, "AoT auction duration in seconds")
	rootCmd.PersistentFlags().Int64("aot-min-lead-slots", defaults.Auction.AotMinLeadSlots, "Minimum AoT lead in slots")
	rootCmd.PersistentFlags().String("starting-balance-sol", defaults.Ledger.StartingBalanceSOL, "Starting session balance in SOL")
	rootCmd.PersistentFlags().Int("event-buffer", defaults.Events.BufferSize, "Per-subscriber event buffer size")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	if err := v.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func initLogger() {
	logger = logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(v.GetString("log-level"))
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
}

func initConfig() error {
	v.AutomaticEnv()

	loader := config.NewLoader(logger)

	var err error

	if cfgFile != "" {
		cfg, err = loader.LoadConfig(cfgFile)
	} else {
		cfg, err = loader.LoadConfigFromFlags(v)
	}

	if err != nil {
		return err
	}

	return config.ValidateConfig(cfg)
}
