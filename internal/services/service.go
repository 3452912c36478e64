package services

import (
	"context"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/models"
)

// LedgerService defines the interface for per-race participant accounting
type LedgerService interface {
	// RecordActivity adds one bet/win event to the user's totals in the race
	RecordActivity(ctx context.Context, raceID, userID string, betAmount, winAmount float64, won bool) (*models.RaceParticipant, error)

	// GetParticipant retrieves the user's ledger row
	GetParticipant(ctx context.Context, raceID, userID string) (*models.RaceParticipant, error)

	// ReconcilePool recomputes a closed race's prize pool from the ledger and
	// reports whether the stored pool had to be corrected
	ReconcilePool(ctx context.Context, raceID string) (pool float64, corrected bool, err error)
}

// LeaderboardService defines the interface for leaderboard ranking
type LeaderboardService interface {
	// Rank recomputes ranks for the race and trims rows beyond the leaderboard size
	Rank(ctx context.Context, raceID string) ([]*models.RaceParticipant, error)

	// GetUserRank retrieves the user's row including its last assigned rank
	GetUserRank(ctx context.Context, raceID, userID string) (*models.RaceParticipant, error)

	// Top returns up to limit participants in leaderboard order without writing
	Top(ctx context.Context, raceID string, limit int) ([]*models.RaceParticipant, error)
}

// PrizeAllocator defines the interface for race settlement
type PrizeAllocator interface {
	// Settle converts the final leaderboard into prize records, exactly once
	// per race. A call that failed part way is completed by the next one.
	Settle(ctx context.Context, raceID string, schedule []models.PayoutTier, prizePool float64) (int, error)

	// SettleRace settles using the race's stored payout schedule and prize pool
	SettleRace(ctx context.Context, raceID string) (int, error)
}

// PrizeClaimService defines the interface for prize claiming and prize queries
type PrizeClaimService interface {
	Claim(ctx context.Context, raceID, userID string) (*models.RacePrize, error)
	GetUserPendingPrizes(ctx context.Context, userID string) ([]*models.RacePrize, error)
	GetUserPrizeHistory(ctx context.Context, userID string) ([]*models.RacePrize, error)
	GetRacePrizes(ctx context.Context, raceID string) ([]*models.RacePrize, error)

	// ExpireStale expires every pending prize whose claim window has passed
	ExpireStale(ctx context.Context) (int64, error)
}

// RoundService defines the interface for crash rounds
type RoundService interface {
	NextRound(ctx context.Context) (*models.CrashRound, error)
	Stats(ctx context.Context) (*models.RoundStats, error)
	History(ctx context.Context, limit int) ([]*models.CrashRound, error)
	MultiplierConfig() (*models.MultiplierConfig, error)
}

// RaceService defines the interface for race administration
type RaceService interface {
	CreateRace(ctx context.Context, req CreateRaceRequest) (*models.Race, error)
	GetRace(ctx context.Context, raceID string) (*models.Race, error)
	ListActiveRaces(ctx context.Context) ([]*models.Race, error)
	PurgeRace(ctx context.Context, raceID string) (*PurgeResult, error)
}

// AuthService defines the interface for operator authentication
type AuthService interface {
	// AdminLogin checks the operator password and issues an admin token
	AdminLogin(ctx context.Context, password string) (token string, expiresAt time.Time, err error)
}
