package config

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Marketplace: MarketplaceConfig{
			SlotWindow:            100,
			SlotDurationMS:        400,
			AdvanceSlotIntervalMS: 400,
			BaseFeeSOL:            "0.001",
			CUPerSlot:             48_000_000,
		},
		Auction: AuctionConfig{
			AotDurationSec:  35,
			AotMinLeadSlots: 35,
			JitPremiumNum:   105,
			JitPremiumDen:   100,
		},
		Ledger: LedgerConfig{
			StartingBalanceSOL: "100000",
		},
		Events: EventsConfig{
			BufferSize: 10_000,
		},
	}
}
