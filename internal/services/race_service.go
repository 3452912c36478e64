package services

import (
	"context"
	"math"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/ArowuTest/crashrace-backend/internal/config"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateRaceRequest describes a new race. Empty optional fields fall back
// to the configured race policy.
type CreateRaceRequest struct {
	RaceID               string              `json:"raceId"`
	Name                 string              `json:"name" binding:"required"`
	StartTime            time.Time           `json:"startTime" binding:"required"`
	EndTime              time.Time           `json:"endTime" binding:"required"`
	PrizePool            float64             `json:"prizePool"`
	PoolContributionRate *float64            `json:"poolContributionRate,omitempty"`
	PayoutSchedule       []models.PayoutTier `json:"payoutSchedule,omitempty"`
}

// PurgeResult reports what PurgeRace removed
type PurgeResult struct {
	RaceID              string `json:"raceId"`
	ParticipantsDeleted int64  `json:"participantsDeleted"`
	PrizesDeleted       int64  `json:"prizesDeleted"`
}

// Compile-time check to ensure RaceServiceImpl implements RaceService
var _ RaceService = (*RaceServiceImpl)(nil)

// RaceServiceImpl handles race administration
type RaceServiceImpl struct {
	races        repositories.RaceRepository
	participants repositories.ParticipantStore
	prizes       repositories.PrizeStore
	policy       config.RaceConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewRaceService creates a new RaceServiceImpl
func NewRaceService(
	races repositories.RaceRepository,
	participants repositories.ParticipantStore,
	prizes repositories.PrizeStore,
	policy config.RaceConfig,
	logger *zap.Logger,
) *RaceServiceImpl {
	return &RaceServiceImpl{
		races:        races,
		participants: participants,
		prizes:       prizes,
		policy:       policy,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateRace validates and stores a new active race
func (s *RaceServiceImpl) CreateRace(ctx context.Context, req CreateRaceRequest) (*models.Race, error) {
	if req.Name == "" {
		return nil, apperrors.Validation("name is required")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, apperrors.Validation("endTime must be after startTime")
	}
	if math.IsNaN(req.PrizePool) || math.IsInf(req.PrizePool, 0) || req.PrizePool < 0 {
		return nil, apperrors.Validation("prizePool must be a non-negative amount")
	}

	rate := s.policy.PoolContributionRate
	if req.PoolContributionRate != nil {
		rate = *req.PoolContributionRate
	}
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return nil, apperrors.Validation("poolContributionRate must be within [0,1]")
	}

	schedule := req.PayoutSchedule
	if len(schedule) == 0 {
		schedule = s.policy.PayoutSchedule
	}
	if err := ValidatePayoutSchedule(schedule); err != nil {
		return nil, err
	}

	raceID := req.RaceID
	if raceID == "" {
		raceID = uuid.NewString()
	}
	now := s.now()
	race := &models.Race{
		RaceID:               raceID,
		Name:                 req.Name,
		StartTime:            req.StartTime.UTC(),
		EndTime:              req.EndTime.UTC(),
		PrizePool:            req.PrizePool,
		BasePrizePool:        req.PrizePool,
		PoolContributionRate: rate,
		PayoutSchedule:       schedule,
		Status:               models.RaceStatusActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.races.Create(ctx, race); err != nil {
		return nil, err
	}
	s.logger.Info("race created",
		zap.String("raceId", race.RaceID),
		zap.Time("startTime", race.StartTime),
		zap.Time("endTime", race.EndTime))
	return race, nil
}

// GetRace retrieves a race by id
func (s *RaceServiceImpl) GetRace(ctx context.Context, raceID string) (*models.Race, error) {
	if raceID == "" {
		return nil, apperrors.Validation("raceId is required")
	}
	return s.races.FindByID(ctx, raceID)
}

// ListActiveRaces returns races that have not been settled, ending soonest first
func (s *RaceServiceImpl) ListActiveRaces(ctx context.Context) ([]*models.Race, error) {
	return s.races.FindByStatus(ctx, models.RaceStatusActive)
}

// PurgeRace deletes the ledger and prize rows of a settled race
func (s *RaceServiceImpl) PurgeRace(ctx context.Context, raceID string) (*PurgeResult, error) {
	race, err := s.GetRace(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if race.Status == models.RaceStatusActive {
		return nil, apperrors.ErrRaceNotSettled
	}

	result := &PurgeResult{RaceID: raceID}
	if result.ParticipantsDeleted, err = s.participants.DeleteByRace(ctx, raceID); err != nil {
		return nil, err
	}
	if result.PrizesDeleted, err = s.prizes.DeleteByRace(ctx, raceID); err != nil {
		return nil, err
	}
	if _, err := s.races.MarkStatus(ctx, raceID, models.RaceStatusSettled, models.RaceStatusPurged, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("race data purged",
		zap.String("raceId", raceID),
		zap.Int64("participants", result.ParticipantsDeleted),
		zap.Int64("prizes", result.PrizesDeleted))
	return result, nil
}

// ValidatePayoutSchedule rejects schedules with bad ranges, percentages
// outside [0,1], or shares that add up to more than the pool.
func ValidatePayoutSchedule(schedule []models.PayoutTier) error {
	if len(schedule) == 0 {
		return apperrors.Validation("payout schedule is empty")
	}
	var total float64
	for i, t := range schedule {
		if t.RankRangeStart < 1 || t.RankRangeEnd < t.RankRangeStart {
			return apperrors.Validation("payout tier %d: invalid rank range %d-%d", i, t.RankRangeStart, t.RankRangeEnd)
		}
		if math.IsNaN(t.Percentage) || t.Percentage < 0 || t.Percentage > 1 {
			return apperrors.Validation("payout tier %d: percentage outside [0,1]", i)
		}
		total += t.Percentage * float64(t.RankRangeEnd-t.RankRangeStart+1)
	}
	if total > 1+1e-9 {
		return apperrors.Validation("payout schedule pays out %.4f of the pool", total)
	}
	return nil
}
