package config

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	Auction     AuctionConfig     `yaml:"auction"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Events      EventsConfig      `yaml:"events"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// MarketplaceConfig holds slot marketplace settings.
type MarketplaceConfig struct {
	SlotWindow            int    `yaml:"slot_window"`
	SlotDurationMS        int64  `yaml:"slot_duration_ms"`
	AdvanceSlotIntervalMS int64  `yaml:"advance_slot_interval_ms"`
	BaseFeeSOL            string `yaml:"base_fee_sol"`
	CUPerSlot             uint64 `yaml:"cu_per_slot"`
}

// AuctionConfig holds auction settings.
type AuctionConfig struct {
	AotDurationSec  int64 `yaml:"aot_duration_sec"`
	AotMinLeadSlots int64 `yaml:"aot_min_lead_slots"`

	// JIT minimum bid is base_fee * JitPremiumNum / JitPremiumDen.
	JitPremiumNum int64 `yaml:"jit_premium_num"`
	JitPremiumDen int64 `yaml:"jit_premium_den"`
}

// LedgerConfig holds balance ledger settings.
type LedgerConfig struct {
	StartingBalanceSOL string `yaml:"starting_balance_sol"`
}

// EventsConfig holds event broadcaster settings.
type EventsConfig struct {
	BufferSize int `yaml:"buffer_size"`
}
