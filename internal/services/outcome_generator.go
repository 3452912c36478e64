package services

import (
	"math/rand"
	"sync"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/config"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Fallback range used when the tier table is missing or invalid.
const (
	FallbackMinMultiplier = 1.0
	FallbackMaxMultiplier = 10.0
)

// RandomSource yields uniform values in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Outcome is one generated crash multiplier. Degraded is set when the value
// came from the fallback distribution instead of the configured tiers.
type Outcome struct {
	Multiplier float64 `json:"crashMultiplier"`
	Degraded   bool    `json:"degraded"`
	Reason     string  `json:"reason,omitempty"`
}

// OutcomeGenerator draws crash multipliers from a weighted tier table
type OutcomeGenerator struct {
	tiers  []models.MultiplierTier
	config *models.MultiplierConfig
	reason string

	mu  sync.Mutex
	rnd RandomSource
}

// NewOutcomeGenerator creates a generator for cfg. A nil or invalid cfg puts
// the generator in degraded mode; loadErr, if set, explains why cfg is nil.
func NewOutcomeGenerator(cfg *models.MultiplierConfig, loadErr error, rnd RandomSource, logger *zap.Logger) *OutcomeGenerator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	g := &OutcomeGenerator{rnd: rnd}

	switch {
	case loadErr != nil:
		g.reason = loadErr.Error()
	case cfg == nil:
		g.reason = "multiplier config not loaded"
	default:
		if err := config.ValidateTiers(cfg.Tiers); err != nil {
			g.reason = err.Error()
		} else {
			g.tiers = append([]models.MultiplierTier(nil), cfg.Tiers...)
			g.config = cfg
		}
	}

	if g.reason != "" && logger != nil {
		logger.Warn("multiplier config unavailable, using uniform fallback",
			zap.String("reason", g.reason),
			zap.Float64("min", FallbackMinMultiplier),
			zap.Float64("max", FallbackMaxMultiplier))
	}
	return g
}

// Config returns the loaded tier table, or nil when running degraded
func (g *OutcomeGenerator) Config() *models.MultiplierConfig {
	return g.config
}

// Degraded reports whether the generator is using the fallback distribution
func (g *OutcomeGenerator) Degraded() bool {
	return g.config == nil
}

// Generate draws one crash multiplier rounded to two decimals
func (g *OutcomeGenerator) Generate() Outcome {
	if g.config == nil {
		v := g.draw()
		return Outcome{
			Multiplier: roundMultiplier(lerp(FallbackMinMultiplier, FallbackMaxMultiplier, v)),
			Degraded:   true,
			Reason:     g.reason,
		}
	}

	r := g.draw()
	tier := g.tiers[len(g.tiers)-1]
	cumulative := 0.0
	for _, t := range g.tiers {
		cumulative += t.Probability
		if r <= cumulative {
			tier = t
			break
		}
	}
	return Outcome{Multiplier: roundMultiplier(lerp(tier.MinMultiplier, tier.MaxMultiplier, g.draw()))}
}

func (g *OutcomeGenerator) draw() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Float64()
}

func lerp(lo, hi, t float64) float64 {
	return lo + (hi-lo)*t
}

// roundMultiplier rounds half away from zero on x*100, which for the positive
// values produced here equals Math.round(x*100)/100 including its float
// boundary behaviour (1.005 rounds to 1.00 because 1.005*100 < 100.5).
func roundMultiplier(x float64) float64 {
	f, _ := decimal.NewFromFloat(x * 100).Round(0).Div(decimal.NewFromInt(100)).Float64()
	return f
}
