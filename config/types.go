package config

// Pricing holds the default bonding-curve parameters given to new oracles.
type Pricing struct {
	K uint64 `toml:"K"`
	M uint64 `toml:"M"`
}

// Vault controls defaults for newly created token vaults.
type Vault struct {
	LiquidityThreshold uint64 `toml:"LiquidityThreshold"`
}

// Bootstrap sizes the one-time creator and platform allocations.
type Bootstrap struct {
	BaseUnits     uint64 `toml:"BaseUnits"`
	AllocationBps uint64 `toml:"AllocationBps"`
}

// RateLimit throttles gateway requests per client.
type RateLimit struct {
	RequestsPerMinute int `toml:"RequestsPerMinute"`
	Burst             int `toml:"Burst"`
}

// Telemetry configures OTLP export. An empty endpoint disables export.
type Telemetry struct {
	Endpoint string `toml:"Endpoint,omitempty"`
	Insecure bool   `toml:"Insecure"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}
