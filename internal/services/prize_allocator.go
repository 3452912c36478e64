package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/ArowuTest/crashrace-backend/internal/config"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/repositories"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check to ensure PrizeAllocatorImpl implements PrizeAllocator
var _ PrizeAllocator = (*PrizeAllocatorImpl)(nil)

// PrizeAllocatorImpl settles races into prize records
type PrizeAllocatorImpl struct {
	ranker LeaderboardService
	prizes repositories.PrizeStore
	races  repositories.RaceRepository
	policy config.RaceConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewPrizeAllocator creates a new PrizeAllocatorImpl
func NewPrizeAllocator(
	ranker LeaderboardService,
	prizes repositories.PrizeStore,
	races repositories.RaceRepository,
	policy config.RaceConfig,
	logger *zap.Logger,
) *PrizeAllocatorImpl {
	return &PrizeAllocatorImpl{
		ranker: ranker,
		prizes: prizes,
		races:  races,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// SettleRace settles using the race's stored payout schedule and prize pool
func (s *PrizeAllocatorImpl) SettleRace(ctx context.Context, raceID string) (int, error) {
	if raceID == "" {
		return 0, apperrors.Validation("raceId is required")
	}
	race, err := s.races.FindByID(ctx, raceID)
	if err != nil {
		return 0, err
	}
	return s.Settle(ctx, raceID, race.PayoutSchedule, race.PrizePool)
}

// Settle creates one pending prize per paid rank and marks the race settled.
// Once the window has closed the ranked snapshot no longer changes, so a call
// that stopped part way (timeout, lost connection) is completed by the next
// one: rows already present are dropped by the unique (raceId, userId) index
// and only the missing ranks are written. Exactly one caller moves the race to
// settled and gets the prize count back; every other caller, concurrent or
// later, gets ErrAlreadySettled and a count of zero.
func (s *PrizeAllocatorImpl) Settle(ctx context.Context, raceID string, schedule []models.PayoutTier, prizePool float64) (int, error) {
	if raceID == "" {
		return 0, apperrors.Validation("raceId is required")
	}
	if math.IsNaN(prizePool) || math.IsInf(prizePool, 0) || prizePool < 0 {
		return 0, apperrors.Validation("prize pool must be a non-negative amount")
	}
	if len(schedule) == 0 {
		return 0, apperrors.Validation("payout schedule is empty")
	}

	race, err := s.races.FindByID(ctx, raceID)
	if err != nil {
		return 0, err
	}
	now := s.now()
	if !race.HasEnded(now) {
		return 0, apperrors.ErrRaceNotEnded
	}
	if race.Status != models.RaceStatusActive {
		return 0, apperrors.ErrAlreadySettled
	}

	ranked, err := s.ranker.Rank(ctx, raceID)
	if err != nil {
		return 0, err
	}

	prizes := buildPrizes(race, ranked, schedule, prizePool, s.paidRanks(schedule), now, s.policy.PrizeExpiry)
	inserted, duplicate, err := s.prizes.InsertMany(ctx, prizes)
	if err != nil {
		// Whatever was written stays; the race is still active and a retry
		// writes the rest.
		return 0, err
	}
	if duplicate {
		s.logger.Warn("prizes already present, completing settlement",
			zap.String("raceId", raceID),
			zap.Int("inserted", inserted),
			zap.Int("expected", len(prizes)))
	}

	moved, err := s.races.MarkStatus(ctx, raceID, models.RaceStatusActive, models.RaceStatusSettled, now)
	if err != nil {
		return 0, err
	}
	if !moved {
		return 0, apperrors.ErrAlreadySettled
	}

	s.logger.Info("race settled",
		zap.String("raceId", raceID),
		zap.Int("winners", len(prizes)),
		zap.Float64("prizePool", prizePool))
	return len(prizes), nil
}

// paidRanks is the highest rank the schedule pays, capped by policy
func (s *PrizeAllocatorImpl) paidRanks(schedule []models.PayoutTier) int {
	n := 0
	for _, t := range schedule {
		if t.RankRangeEnd > n {
			n = t.RankRangeEnd
		}
	}
	if n > s.policy.MaxPaidRanks {
		n = s.policy.MaxPaidRanks
	}
	return n
}

func buildPrizes(
	race *models.Race,
	ranked []*models.RaceParticipant,
	schedule []models.PayoutTier,
	prizePool float64,
	paid int,
	now time.Time,
	expiry time.Duration,
) []*models.RacePrize {
	pool := decimal.NewFromFloat(prizePool)
	prizes := make([]*models.RacePrize, 0, paid)
	for i, p := range ranked {
		rank := i + 1
		if rank > paid {
			break
		}
		tier, ok := tierFor(schedule, rank)
		if !ok {
			continue
		}
		pct := clampUnit(tier.Percentage)
		amount := math.Max(0, toMoney(pool.Mul(decimal.NewFromFloat(pct))))
		prizes = append(prizes, &models.RacePrize{
			RaceID:         race.RaceID,
			UserID:         p.UserID,
			Rank:           rank,
			PrizeAmount:    amount,
			Percentage:     pct,
			Status:         models.PrizeStatusPending,
			CreatedAt:      now,
			ExpiresAt:      now.Add(expiry),
			NetProfit:      p.NetProfit,
			SessionCount:   p.SessionCount,
			TotalBetAmount: p.TotalBetAmount,
			TotalWinAmount: p.TotalWinAmount,
			RaceStartTime:  race.StartTime,
			RaceEndTime:    race.EndTime,
		})
	}
	return prizes
}

func tierFor(schedule []models.PayoutTier, rank int) (models.PayoutTier, bool) {
	for _, t := range schedule {
		if t.Covers(rank) {
			return t, true
		}
	}
	return models.PayoutTier{}, false
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// IsAlreadySettled reports whether err means the race had been settled before
func IsAlreadySettled(err error) bool {
	return errors.Is(err, apperrors.ErrAlreadySettled)
}
