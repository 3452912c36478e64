package services

import (
	"context"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/ArowuTest/crashrace-backend/internal/config"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/repositories"
	"go.uber.org/zap"
)

// Compile-time check to ensure LeaderboardServiceImpl implements LeaderboardService
var _ LeaderboardService = (*LeaderboardServiceImpl)(nil)

// LeaderboardServiceImpl orders race participants and keeps the board bounded
type LeaderboardServiceImpl struct {
	participants repositories.ParticipantStore
	policy       config.RaceConfig
	logger       *zap.Logger
}

// NewLeaderboardService creates a new LeaderboardServiceImpl
func NewLeaderboardService(participants repositories.ParticipantStore, policy config.RaceConfig, logger *zap.Logger) *LeaderboardServiceImpl {
	return &LeaderboardServiceImpl{
		participants: participants,
		policy:       policy,
		logger:       logger,
	}
}

// Rank reads the top of the board, writes rank 1..n in one bulk write and
// deletes everything ordered after the last kept entry. Running it twice
// without intervening activity yields the same ranks.
func (s *LeaderboardServiceImpl) Rank(ctx context.Context, raceID string) ([]*models.RaceParticipant, error) {
	if raceID == "" {
		return nil, apperrors.Validation("raceId is required")
	}
	size := s.policy.LeaderboardSize

	top, err := s.participants.FindTop(ctx, raceID, size)
	if err != nil {
		return nil, err
	}
	if err := s.participants.AssignRanks(ctx, raceID, top); err != nil {
		return nil, err
	}
	for i, p := range top {
		p.Rank = i + 1
	}

	if len(top) == size {
		pruned, err := s.participants.PruneBeyond(ctx, raceID, size)
		if err != nil {
			return nil, err
		}
		if pruned > 0 {
			s.logger.Info("trimmed leaderboard",
				zap.String("raceId", raceID),
				zap.Int64("deleted", pruned))
		}
	}
	return top, nil
}

// GetUserRank retrieves the user's row; Rank is 0 until the first recomputation
func (s *LeaderboardServiceImpl) GetUserRank(ctx context.Context, raceID, userID string) (*models.RaceParticipant, error) {
	if err := validateIDs(raceID, userID); err != nil {
		return nil, err
	}
	return s.participants.FindOne(ctx, raceID, userID)
}

// Top returns a read-only view; a non-positive limit means the query limit
func (s *LeaderboardServiceImpl) Top(ctx context.Context, raceID string, limit int) ([]*models.RaceParticipant, error) {
	if raceID == "" {
		return nil, apperrors.Validation("raceId is required")
	}
	if limit <= 0 {
		limit = s.policy.QueryLimit
	}
	if limit > s.policy.LeaderboardSize {
		limit = s.policy.LeaderboardSize
	}
	return s.participants.FindTop(ctx, raceID, limit)
}
