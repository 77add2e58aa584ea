// Package config handles configuration loading and validation for slotmarket.
package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/raikusim/slotmarket/pkg/sol"
)

// Loader handles configuration loading from files and flags.
type Loader struct {
	log logrus.FieldLogger
}

// NewLoader creates a new configuration loader.
func NewLoader(log logrus.FieldLogger) *Loader {
	return &Loader{
		log: log.WithField("component", "config"),
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
func (l *Loader) LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadConfigFromFlags overlays viper flag values onto the defaults.
func (l *Loader) LoadConfigFromFlags(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if val := v.GetString("host"); val != "" {
		cfg.Server.Host = val
	}

	if val := v.GetInt("port"); val != 0 {
		cfg.Server.Port = val
	}

	if val := v.GetStringSlice("cors-origins"); len(val) > 0 {
		cfg.Server.CORSOrigins = val
	}

	if val := v.GetInt("slot-window"); val != 0 {
		cfg.Marketplace.SlotWindow = val
	}

	if val := v.GetInt64("slot-duration-ms"); val != 0 {
		cfg.Marketplace.SlotDurationMS = val
	}

	if val := v.GetInt64("advance-slot-interval-ms"); val != 0 {
		cfg.Marketplace.AdvanceSlotIntervalMS = val
	}

	if val := v.GetString("base-fee-sol"); val != "" {
		cfg.Marketplace.BaseFeeSOL = val
	}

	if val := v.GetUint64("cu-per-slot"); val != 0 {
		cfg.Marketplace.CUPerSlot = val
	}

	if val := v.GetInt64("aot-duration-sec"); val != 0 {
		cfg.Auction.AotDurationSec = val
	}

	if val := v.GetInt64("aot-min-lead-slots"); val != 0 {
		cfg.Auction.AotMinLeadSlots = val
	}

	if val := v.GetString("starting-balance-sol"); val != "" {
		cfg.Ledger.StartingBalanceSOL = val
	}

	if val := v.GetInt("event-buffer"); val != 0 {
		cfg.Events.BufferSize = val
	}

	return cfg, nil
}

// ValidateConfig validates the configuration for consistency and completeness.
func ValidateConfig(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port: invalid port %d", cfg.Server.Port)
	}

	if cfg.Marketplace.SlotWindow <= 0 {
		return fmt.Errorf("marketplace.slot_window must be > 0")
	}

	if cfg.Marketplace.SlotDurationMS <= 0 {
		return fmt.Errorf("marketplace.slot_duration_ms must be > 0")
	}

	if cfg.Marketplace.AdvanceSlotIntervalMS <= 0 {
		return fmt.Errorf("marketplace.advance_slot_interval_ms must be > 0")
	}

	baseFee, err := sol.Parse(cfg.Marketplace.BaseFeeSOL)
	if err != nil {
		return fmt.Errorf("marketplace.base_fee_sol: %w", err)
	}

	if baseFee <= 0 {
		return fmt.Errorf("marketplace.base_fee_sol must be > 0")
	}

	if cfg.Marketplace.CUPerSlot == 0 {
		return fmt.Errorf("marketplace.cu_per_slot must be > 0")
	}

	if cfg.Auction.AotDurationSec <= 0 {
		return fmt.Errorf("auction.aot_duration_sec must be > 0")
	}

	if cfg.Auction.AotMinLeadSlots <= 0 {
		return fmt.Errorf("auction.aot_min_lead_slots must be > 0")
	}

	if cfg.Auction.JitPremiumNum <= 0 || cfg.Auction.JitPremiumDen <= 0 {
		return fmt.Errorf("auction.jit_premium must be a positive ratio")
	}

	starting, err := sol.Parse(cfg.Ledger.StartingBalanceSOL)
	if err != nil {
		return fmt.Errorf("ledger.starting_balance_sol: %w", err)
	}

	if starting < 0 {
		return fmt.Errorf("ledger.starting_balance_sol must be >= 0")
	}

	if cfg.Events.BufferSize <= 0 {
		return fmt.Errorf("events.buffer_size must be > 0")
	}

	return nil
}

// BaseFee returns the configured base fee as an exact amount.
// ValidateConfig must have succeeded first.
func (c *MarketplaceConfig) BaseFee() sol.Amount {
	amount, err := sol.Parse(c.BaseFeeSOL)
	if err != nil {
		return 0
	}

	return amount
}

// StartingBalance returns the configured starting balance as an exact amount.
func (c *LedgerConfig) StartingBalance() sol.Amount {
	amount, err := sol.Parse(c.StartingBalanceSOL)
	if err != nil {
		return 0
	}

	return amount
}
