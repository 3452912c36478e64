package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/spf13/viper"
)

// probabilitySlack absorbs float error when probabilities are summed.
const probabilitySlack = 1e-9

// LoadMultiplierConfig reads the tier table from a JSON or YAML file with a
// top-level "tiers" list. The returned table has been validated.
func LoadMultiplierConfig(path string) (*models.MultiplierConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read multiplier config %s: %w", path, err)
	}

	var tiers []models.MultiplierTier
	if err := v.UnmarshalKey("tiers", &tiers); err != nil {
		return nil, fmt.Errorf("failed to decode multiplier tiers: %w", err)
	}
	if err := ValidateTiers(tiers); err != nil {
		return nil, err
	}
	return &models.MultiplierConfig{
		Tiers:    tiers,
		Source:   path,
		LoadedAt: time.Now(),
	}, nil
}

// ValidateTiers rejects structurally invalid tier tables
func ValidateTiers(tiers []models.MultiplierTier) error {
	if len(tiers) == 0 {
		return errors.New("multiplier config has no tiers")
	}
	var sum float64
	for i, t := range tiers {
		if math.IsNaN(t.Probability) || t.Probability < 0 || t.Probability > 1 {
			return fmt.Errorf("tier %d: probability %v outside [0,1]", i, t.Probability)
		}
		if math.IsNaN(t.MinMultiplier) || math.IsNaN(t.MaxMultiplier) || t.MinMultiplier > t.MaxMultiplier {
			return fmt.Errorf("tier %d: invalid range [%v, %v]", i, t.MinMultiplier, t.MaxMultiplier)
		}
		if t.MinMultiplier < 1 {
			return fmt.Errorf("tier %d: multiplier below 1.0", i)
		}
		sum += t.Probability
	}
	if sum > 1+probabilitySlack {
		return fmt.Errorf("tier probabilities sum to %v, more than 1", sum)
	}
	return nil
}
