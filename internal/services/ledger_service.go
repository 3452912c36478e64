package services

import (
	"context"
	"math"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/ArowuTest/crashrace-backend/internal/config"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/repositories"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check to ensure LedgerServiceImpl implements LedgerService
var _ LedgerService = (*LedgerServiceImpl)(nil)

// LedgerServiceImpl keeps the cumulative per-user statistics of each race
type LedgerServiceImpl struct {
	participants repositories.ParticipantStore
	races        repositories.RaceRepository
	policy       config.RaceConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewLedgerService creates a new LedgerServiceImpl
func NewLedgerService(
	participants repositories.ParticipantStore,
	races repositories.RaceRepository,
	policy config.RaceConfig,
	logger *zap.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		participants: participants,
		races:        races,
		policy:       policy,
		logger:       logger,
		now:          time.Now,
	}
}

// RecordActivity validates the event, applies it to the ledger in one atomic
// upsert and feeds the race prize pool.
func (s *LedgerServiceImpl) RecordActivity(ctx context.Context, raceID, userID string, betAmount, winAmount float64, won bool) (*models.RaceParticipant, error) {
	if err := validateIDs(raceID, userID); err != nil {
		return nil, err
	}
	if !validAmount(betAmount) || !validAmount(winAmount) {
		return nil, apperrors.Validation("bet and win amounts must be finite and non-negative")
	}

	race, err := s.races.FindByID(ctx, raceID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !race.IsOpen(now) {
		return nil, apperrors.ErrRaceNotActive
	}

	contribution := toMoney(decimal.NewFromFloat(betAmount).Mul(decimal.NewFromFloat(race.PoolContributionRate)))
	participant, created, err := s.participants.RecordActivity(ctx, models.Activity{
		RaceID:       raceID,
		UserID:       userID,
		BetAmount:    betAmount,
		WinAmount:    winAmount,
		Won:          won,
		Contribution: contribution,
		At:           now,
	})
	if err != nil {
		return nil, err
	}

	if contribution > 0 {
		// The contribution is already on the participant row; ReconcilePool
		// restores a missed increment once the race closes.
		if err := s.races.IncrementPool(ctx, raceID, contribution); err != nil {
			s.logger.Error("failed to add contribution to prize pool",
				zap.String("raceId", raceID),
				zap.String("userId", userID),
				zap.Float64("contribution", contribution),
				zap.Error(err))
		}
	}

	if created {
		s.enforceCap(ctx, raceID)
	}
	return participant, nil
}

// enforceCap trims the race back to the leaderboard size after a new row.
// Failures are left for the next recomputation.
func (s *LedgerServiceImpl) enforceCap(ctx context.Context, raceID string) {
	count, err := s.participants.CountByRace(ctx, raceID)
	if err != nil {
		s.logger.Warn("failed to count participants", zap.String("raceId", raceID), zap.Error(err))
		return
	}
	if count <= int64(s.policy.LeaderboardSize) {
		return
	}
	pruned, err := s.participants.PruneBeyond(ctx, raceID, s.policy.LeaderboardSize)
	if err != nil {
		s.logger.Warn("failed to prune leaderboard", zap.String("raceId", raceID), zap.Error(err))
		return
	}
	s.logger.Debug("pruned leaderboard", zap.String("raceId", raceID), zap.Int64("deleted", pruned))
}

// GetParticipant retrieves the user's ledger row
func (s *LedgerServiceImpl) GetParticipant(ctx context.Context, raceID, userID string) (*models.RaceParticipant, error) {
	if err := validateIDs(raceID, userID); err != nil {
		return nil, err
	}
	return s.participants.FindOne(ctx, raceID, userID)
}

// ReconcilePool raises a closed race's pool to its base pool plus the sum of
// the contributions still on the ledger. Per-activity pool increments are not
// retried, so this is what brings a lagging pool back in line before
// settlement. The pool is never lowered: rows pruned from the leaderboard take
// their contributions off the ledger but not out of the pool. Open races are
// refused because contributions are still arriving.
func (s *LedgerServiceImpl) ReconcilePool(ctx context.Context, raceID string) (float64, bool, error) {
	if raceID == "" {
		return 0, false, apperrors.Validation("raceId is required")
	}
	race, err := s.races.FindByID(ctx, raceID)
	if err != nil {
		return 0, false, err
	}
	if race.Status != models.RaceStatusActive {
		// Settled pools are frozen.
		return race.PrizePool, false, nil
	}
	if !race.HasEnded(s.now()) {
		return 0, false, apperrors.ErrRaceNotEnded
	}

	contributed, err := s.participants.SumContributions(ctx, raceID)
	if err != nil {
		return 0, false, err
	}
	pool := toMoney(decimal.NewFromFloat(race.BasePrizePool).Add(decimal.NewFromFloat(contributed)))
	if pool <= toMoney(decimal.NewFromFloat(race.PrizePool)) {
		return race.PrizePool, false, nil
	}

	updated, err := s.races.SetPool(ctx, raceID, pool)
	if err != nil {
		return 0, false, err
	}
	if !updated {
		// Settled in the meantime; the stored pool is what was paid out.
		return race.PrizePool, false, nil
	}
	s.logger.Warn("prize pool corrected from ledger",
		zap.String("raceId", raceID),
		zap.Float64("stored", race.PrizePool),
		zap.Float64("reconciled", pool))
	return pool, true, nil
}

func validateIDs(raceID, userID string) error {
	if raceID == "" {
		return apperrors.Validation("raceId is required")
	}
	if userID == "" {
		return apperrors.Validation("userId is required")
	}
	return nil
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// toMoney rounds to cents.
func toMoney(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
