package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raikusim/slotmarket/pkg/sol"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ValidateConfig(cfg))

	assert.Equal(t, sol.FromLamports(1_000_000), cfg.Marketplace.BaseFee())
	assert.Equal(t, sol.FromSOL(100_000), cfg.Ledger.StartingBalance())
	assert.Equal(t, 100, cfg.Marketplace.SlotWindow)
	assert.Equal(t, int64(35), cfg.Auction.AotMinLeadSlots)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window", func(c *Config) { c.Marketplace.SlotWindow = 0 }},
		{"bad base fee", func(c *Config) { c.Marketplace.BaseFeeSOL = "abc" }},
		{"zero base fee", func(c *Config) { c.Marketplace.BaseFeeSOL = "0" }},
		{"zero tick interval", func(c *Config) { c.Marketplace.AdvanceSlotIntervalMS = 0 }},
		{"zero lead", func(c *Config) { c.Auction.AotMinLeadSlots = 0 }},
		{"bad premium", func(c *Config) { c.Auction.JitPremiumDen = 0 }},
		{"bad starting balance", func(c *Config) { c.Ledger.StartingBalanceSOL = "-1" }},
		{"zero event buffer", func(c *Config) { c.Events.BufferSize = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slotmarket.yaml")

	content := []byte(`
server:
  port: 9090
marketplace:
  base_fee_sol: "0.002"
  slot_window: 50
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	loader := NewLoader(logrus.New())

	cfg, err := loader.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.002", cfg.Marketplace.BaseFeeSOL)
	assert.Equal(t, 50, cfg.Marketplace.SlotWindow)

	// Untouched values keep their defaults.
	assert.Equal(t, int64(400), cfg.Marketplace.SlotDurationMS)
	require.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfigMissingFile(t *testing.T) {
	loader := NewLoader(logrus.New())

	_, err := loader.LoadConfig("/does/not/exist.yaml")
	assert.Error(t, err)
}
