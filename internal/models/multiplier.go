package models

import "time"

// MultiplierTier is one band of the crash multiplier distribution.
type MultiplierTier struct {
	MinMultiplier float64 `json:"minMultiplier" mapstructure:"minMultiplier"`
	MaxMultiplier float64 `json:"maxMultiplier" mapstructure:"maxMultiplier"`
	Probability   float64 `json:"probability" mapstructure:"probability"`
}

// MultiplierConfig is the tier table loaded at startup. Tiers are consulted in order.
type MultiplierConfig struct {
	Tiers    []MultiplierTier `json:"tiers"`
	Source   string           `json:"source"`
	LoadedAt time.Time        `json:"loadedAt"`
}
