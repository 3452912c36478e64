package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/config"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/repositories/repotest"
	"go.uber.org/zap"
)

var raceStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

// clock is a settable time source shared by the services under test
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// seqSource replays fixed values, cycling when exhausted
type seqSource struct {
	vals []float64
	i    int
}

func (s *seqSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func testPolicy() config.RaceConfig {
	return config.RaceConfig{
		LeaderboardSize:      1000,
		MaxPaidRanks:         10,
		PrizeExpiry:          7 * 24 * time.Hour,
		QueryLimit:           100,
		PoolContributionRate: 0.01,
		PayoutSchedule:       config.DefaultPayoutSchedule,
	}
}

// fixture wires every race service against in-memory stores
type fixture struct {
	clock        *clock
	participants *repotest.Participants
	prizes       *repotest.Prizes
	races        *repotest.Races
	ledger       *LedgerServiceImpl
	leaderboard  *LeaderboardServiceImpl
	allocator    *PrizeAllocatorImpl
	claims       *PrizeClaimServiceImpl
	raceSvc      *RaceServiceImpl
}

func newFixture(t *testing.T, policy config.RaceConfig) *fixture {
	t.Helper()
	f := &fixture{
		clock:        newClock(raceStart.Add(time.Hour)),
		participants: repotest.NewParticipants(),
		prizes:       repotest.NewPrizes(),
		races:        repotest.NewRaces(),
	}
	logger := zap.NewNop()
	f.ledger = NewLedgerService(f.participants, f.races, policy, logger)
	f.ledger.now = f.clock.Now
	f.leaderboard = NewLeaderboardService(f.participants, policy, logger)
	f.allocator = NewPrizeAllocator(f.leaderboard, f.prizes, f.races, policy, logger)
	f.allocator.now = f.clock.Now
	f.claims = NewPrizeClaimService(f.prizes, policy, logger)
	f.claims.now = f.clock.Now
	f.raceSvc = NewRaceService(f.races, f.participants, f.prizes, policy, logger)
	f.raceSvc.now = f.clock.Now
	return f
}

// addRace stores an active race running for one day from raceStart
func (f *fixture) addRace(t *testing.T, raceID string, pool float64) *models.Race {
	t.Helper()
	race := &models.Race{
		RaceID:               raceID,
		Name:                 "race " + raceID,
		StartTime:            raceStart,
		EndTime:              raceStart.Add(24 * time.Hour),
		PrizePool:            pool,
		BasePrizePool:        pool,
		PoolContributionRate: 0.01,
		PayoutSchedule:       config.DefaultPayoutSchedule,
		Status:               models.RaceStatusActive,
	}
	if err := f.races.Create(context.Background(), race); err != nil {
		t.Fatalf("create race: %v", err)
	}
	return race
}

func (f *fixture) endRace() {
	f.clock.Set(raceStart.Add(24 * time.Hour))
}
