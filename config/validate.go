package config

import (
	"fmt"
	"strings"
)

// MaxAllocationBps bounds each bootstrap allocation to the whole base.
const MaxAllocationBps = uint64(10_000)

func ValidateConfig(c Config) error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must be set")
	}
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("ListenAddress must be set")
	}
	if c.Pricing.K == 0 && c.Pricing.M == 0 {
		return fmt.Errorf("pricing: K and M cannot both be zero")
	}
	if c.Vault.LiquidityThreshold == 0 {
		return fmt.Errorf("vault: LiquidityThreshold must be positive")
	}
	if c.Bootstrap.BaseUnits == 0 {
		return fmt.Errorf("bootstrap: BaseUnits must be positive")
	}
	if c.Bootstrap.AllocationBps == 0 || c.Bootstrap.AllocationBps > MaxAllocationBps {
		return fmt.Errorf("bootstrap: AllocationBps must be in (0, %d]", MaxAllocationBps)
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must not be negative")
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("rate_limit: Burst must be positive when RequestsPerMinute is set")
	}
	if (c.Telemetry.Metrics || c.Telemetry.Traces) && c.Telemetry.Insecure && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: Insecure set without Endpoint")
	}
	return nil
}
