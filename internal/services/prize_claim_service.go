package services

import (
	"context"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/ArowuTest/crashrace-backend/internal/config"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/repositories"
	"go.uber.org/zap"
)

// Compile-time check to ensure PrizeClaimServiceImpl implements PrizeClaimService
var _ PrizeClaimService = (*PrizeClaimServiceImpl)(nil)

// PrizeClaimServiceImpl drives the pending -> claimed | expired state machine
type PrizeClaimServiceImpl struct {
	prizes repositories.PrizeStore
	policy config.RaceConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewPrizeClaimService creates a new PrizeClaimServiceImpl
func NewPrizeClaimService(prizes repositories.PrizeStore, policy config.RaceConfig, logger *zap.Logger) *PrizeClaimServiceImpl {
	return &PrizeClaimServiceImpl{
		prizes: prizes,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// Claim moves the user's prize from pending to claimed. Of any number of
// concurrent claims exactly one succeeds; the others learn the terminal state.
func (s *PrizeClaimServiceImpl) Claim(ctx context.Context, raceID, userID string) (*models.RacePrize, error) {
	if err := validateIDs(raceID, userID); err != nil {
		return nil, err
	}
	now := s.now()

	prize, err := s.prizes.ClaimPending(ctx, raceID, userID, now)
	if err != nil {
		return nil, err
	}
	if prize != nil {
		s.logger.Info("prize claimed",
			zap.String("raceId", raceID),
			zap.String("userId", userID),
			zap.Int("rank", prize.Rank),
			zap.Float64("amount", prize.PrizeAmount))
		return prize, nil
	}

	expired, err := s.prizes.ExpireIfStale(ctx, raceID, userID, now)
	if err != nil {
		return nil, err
	}
	if expired {
		s.logger.Info("prize expired on claim", zap.String("raceId", raceID), zap.String("userId", userID))
		return nil, apperrors.ErrPrizeExpired
	}

	current, err := s.prizes.FindOne(ctx, raceID, userID)
	if err != nil {
		return nil, err
	}
	switch current.Status {
	case models.PrizeStatusClaimed:
		return nil, apperrors.ErrPrizeAlreadyClaimed
	case models.PrizeStatusExpired:
		return nil, apperrors.ErrPrizeExpired
	default:
		// Still pending after both conditional updates missed means settlement
		// inserted the row after the claim was attempted.
		return nil, apperrors.ErrPrizeNotFound
	}
}

// GetUserPendingPrizes returns claimable prizes, newest first
func (s *PrizeClaimServiceImpl) GetUserPendingPrizes(ctx context.Context, userID string) ([]*models.RacePrize, error) {
	if userID == "" {
		return nil, apperrors.Validation("userId is required")
	}
	return s.prizes.FindPendingByUser(ctx, userID, s.now(), s.policy.QueryLimit)
}

// GetUserPrizeHistory returns prizes in every status, newest first
func (s *PrizeClaimServiceImpl) GetUserPrizeHistory(ctx context.Context, userID string) ([]*models.RacePrize, error) {
	if userID == "" {
		return nil, apperrors.Validation("userId is required")
	}
	return s.prizes.FindByUser(ctx, userID, s.policy.QueryLimit)
}

// GetRacePrizes returns the prizes of a race ordered by rank
func (s *PrizeClaimServiceImpl) GetRacePrizes(ctx context.Context, raceID string) ([]*models.RacePrize, error) {
	if raceID == "" {
		return nil, apperrors.Validation("raceId is required")
	}
	return s.prizes.FindByRace(ctx, raceID, s.policy.QueryLimit)
}

// ExpireStale expires every pending prize past its deadline
func (s *PrizeClaimServiceImpl) ExpireStale(ctx context.Context) (int64, error) {
	return s.prizes.ExpireStale(ctx, s.now())
}
