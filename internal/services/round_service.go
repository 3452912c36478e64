package services

import (
	"context"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// History limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Compile-time check to ensure RoundServiceImpl implements RoundService
var _ RoundService = (*RoundServiceImpl)(nil)

// RoundServiceImpl generates crash rounds and serves their history
type RoundServiceImpl struct {
	generator *OutcomeGenerator
	rounds    repositories.RoundRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewRoundService creates a new RoundServiceImpl
func NewRoundService(generator *OutcomeGenerator, rounds repositories.RoundRepository, logger *zap.Logger) *RoundServiceImpl {
	return &RoundServiceImpl{
		generator: generator,
		rounds:    rounds,
		logger:    logger,
		now:       time.Now,
	}
}

// NextRound draws a multiplier and records it. A recording failure is logged
// and the round is still returned so gameplay is not blocked on storage.
func (s *RoundServiceImpl) NextRound(ctx context.Context) (*models.CrashRound, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := s.generator.Generate()
	round := &models.CrashRound{
		RoundID:         uuid.NewString(),
		CrashMultiplier: out.Multiplier,
		Degraded:        out.Degraded,
		CreatedAt:       s.now(),
	}
	if err := s.rounds.Create(ctx, round); err != nil {
		s.logger.Warn("failed to record round",
			zap.String("roundId", round.RoundID),
			zap.Float64("crashMultiplier", round.CrashMultiplier),
			zap.Error(err))
	}
	return round, nil
}

// Stats aggregates every recorded round
func (s *RoundServiceImpl) Stats(ctx context.Context) (*models.RoundStats, error) {
	return s.rounds.Stats(ctx)
}

// History returns the most recent rounds. Zero selects the default limit.
func (s *RoundServiceImpl) History(ctx context.Context, limit int) ([]*models.CrashRound, error) {
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return nil, apperrors.Validation("limit must be between 1 and %d", MaxHistoryLimit)
	}
	return s.rounds.FindRecent(ctx, limit)
}

// MultiplierConfig returns the loaded tier table
func (s *RoundServiceImpl) MultiplierConfig() (*models.MultiplierConfig, error) {
	cfg := s.generator.Config()
	if cfg == nil {
		return nil, apperrors.ErrMultiplierConfigUnavailable
	}
	return cfg, nil
}
