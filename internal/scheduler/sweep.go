// Package scheduler runs the periodic race maintenance sweep.
package scheduler

import (
	"context"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/config"
	"github.com/ArowuTest/crashrace-backend/internal/lock"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/services"
	"go.uber.org/zap"
)

// LockKey guards the sweep across processes
const LockKey = "crashrace:sweep"

// SweepReport summarises one sweep run
type SweepReport struct {
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
	Skipped        bool      `json:"skipped"`
	ExpiredPrizes  int64     `json:"expiredPrizes"`
	RacesRanked    int       `json:"racesRanked"`
	PoolsCorrected int       `json:"poolsCorrected"`
	RacesSettled   []string  `json:"racesSettled"`
	Errors         []string  `json:"errors,omitempty"`
}

// Sweeper expires stale prizes, recomputes active leaderboards, reconciles the
// prize pool of closed races and, when enabled, settles them. Each step is a
// conditional operation, so overlapping runs are harmless.
type Sweeper struct {
	claims      services.PrizeClaimService
	ledger      services.LedgerService
	races       services.RaceService
	leaderboard services.LeaderboardService
	allocator   services.PrizeAllocator
	locker      lock.Locker
	cfg         config.SweepConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewSweeper creates a Sweeper. A nil locker runs without cross-process locking.
func NewSweeper(
	claims services.PrizeClaimService,
	ledger services.LedgerService,
	races services.RaceService,
	leaderboard services.LeaderboardService,
	allocator services.PrizeAllocator,
	locker lock.Locker,
	cfg config.SweepConfig,
	logger *zap.Logger,
) *Sweeper {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &Sweeper{
		claims:      claims,
		ledger:      ledger,
		races:       races,
		leaderboard: leaderboard,
		allocator:   allocator,
		locker:      locker,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Register adds the sweep to runner on the configured schedule
func (s *Sweeper) Register(runner *Runner) error {
	_, err := runner.Add(s.cfg.Schedule, func(ctx context.Context) {
		s.Run(ctx)
	})
	return err
}

// Run performs one sweep, bounded by the lock TTL so the lease cannot lapse
// mid-run. A failing step is logged and recorded in the report; later steps
// still run.
func (s *Sweeper) Run(ctx context.Context) *SweepReport {
	report := &SweepReport{StartedAt: s.now(), RacesSettled: []string{}}
	defer func() { report.FinishedAt = s.now() }()

	if s.cfg.LockTTL > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LockTTL)
		defer cancel()
	}

	release, ok, err := s.locker.Acquire(ctx, LockKey, s.cfg.LockTTL)
	switch {
	case err != nil:
		// The lock only avoids duplicate work; sweep anyway.
		s.logger.Warn("sweep lock unavailable, running unlocked", zap.Error(err))
	case !ok:
		s.logger.Debug("sweep already running elsewhere")
		report.Skipped = true
		return report
	default:
		defer func() {
			if err := release(context.Background()); err != nil {
				s.logger.Warn("failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	expired, err := s.claims.ExpireStale(ctx)
	if err != nil {
		s.fail(report, "expire prizes", err)
	} else {
		report.ExpiredPrizes = expired
	}

	active, err := s.races.ListActiveRaces(ctx)
	if err != nil {
		s.fail(report, "list active races", err)
		return report
	}

	now := s.now()
	for _, race := range active {
		if ctx.Err() != nil {
			s.fail(report, "sweep", ctx.Err())
			break
		}
		if race.HasEnded(now) {
			_, corrected, err := s.ledger.ReconcilePool(ctx, race.RaceID)
			if err != nil {
				// Never settle on an unreconciled pool.
				s.fail(report, "reconcile pool "+race.RaceID, err)
				continue
			}
			if corrected {
				report.PoolsCorrected++
			}
			if s.cfg.AutoSettle {
				s.settle(ctx, race, report)
				continue
			}
		}
		if _, err := s.leaderboard.Rank(ctx, race.RaceID); err != nil {
			s.fail(report, "rank race "+race.RaceID, err)
			continue
		}
		report.RacesRanked++
	}

	s.logger.Info("sweep finished",
		zap.Int64("expiredPrizes", report.ExpiredPrizes),
		zap.Int("racesRanked", report.RacesRanked),
		zap.Int("poolsCorrected", report.PoolsCorrected),
		zap.Strings("racesSettled", report.RacesSettled),
		zap.Int("errors", len(report.Errors)))
	return report
}

func (s *Sweeper) settle(ctx context.Context, race *models.Race, report *SweepReport) {
	winners, err := s.allocator.SettleRace(ctx, race.RaceID)
	if err != nil && !services.IsAlreadySettled(err) {
		s.fail(report, "settle race "+race.RaceID, err)
		return
	}
	if err == nil {
		s.logger.Info("race auto-settled", zap.String("raceId", race.RaceID), zap.Int("winners", winners))
		report.RacesSettled = append(report.RacesSettled, race.RaceID)
	}
}

func (s *Sweeper) fail(report *SweepReport, step string, err error) {
	s.logger.Error("sweep step failed", zap.String("step", step), zap.Error(err))
	report.Errors = append(report.Errors, step+": "+err.Error())
}
