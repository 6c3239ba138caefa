package config

// Pauses holds the module-wide emergency switches applied at start-up.
type Pauses struct {
	AMM bool `toml:"AMM"`
}

// Telemetry configures the OpenTelemetry exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}

// Token registers a token symbol in the ledger.
type Token struct {
	Symbol   string `toml:"Symbol"`
	Name     string `toml:"Name"`
	Decimals uint8  `toml:"Decimals"`
}

// Balance seeds an account balance on first start.
type Balance struct {
	Token  string `toml:"Token"`
	Owner  string `toml:"Owner"`
	Amount uint64 `toml:"Amount"`
}
