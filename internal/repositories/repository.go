package repositories

import (
	"context"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/models"
)

// ParticipantStore defines the storage operations for race participants.
// Every mutation is a single atomic storage operation.
type ParticipantStore interface {
	// RecordActivity adds the activity to the participant's totals, creating the
	// row on first use. created reports whether the row was inserted.
	RecordActivity(ctx context.Context, activity models.Activity) (participant *models.RaceParticipant, created bool, err error)
	FindOne(ctx context.Context, raceID, userID string) (*models.RaceParticipant, error)
	// FindTop returns up to limit participants in leaderboard order.
	FindTop(ctx context.Context, raceID string, limit int) ([]*models.RaceParticipant, error)
	// AssignRanks sets rank = index+1 for each participant in ordered.
	AssignRanks(ctx context.Context, raceID string, ordered []*models.RaceParticipant) error
	// PruneBeyond deletes every participant ordered strictly after the keep-th entry.
	PruneBeyond(ctx context.Context, raceID string, keep int) (int64, error)
	CountByRace(ctx context.Context, raceID string) (int64, error)
	// SumContributions totals contributionToPool over the race's rows.
	SumContributions(ctx context.Context, raceID string) (float64, error)
	DeleteByRace(ctx context.Context, raceID string) (int64, error)
}

// PrizeStore defines the storage operations for race prizes. Status changes
// are conditional updates on status == pending.
type PrizeStore interface {
	// InsertMany inserts prizes; it returns how many were written and whether
	// any insert collided with an existing (raceId, userId) prize.
	InsertMany(ctx context.Context, prizes []*models.RacePrize) (inserted int, duplicate bool, err error)
	FindOne(ctx context.Context, raceID, userID string) (*models.RacePrize, error)
	CountByRace(ctx context.Context, raceID string) (int64, error)
	// ClaimPending moves a pending, unexpired prize to claimed. It returns
	// nil, nil when no such prize exists.
	ClaimPending(ctx context.Context, raceID, userID string, now time.Time) (*models.RacePrize, error)
	// ExpireIfStale moves one pending prize whose expiresAt < now to expired.
	ExpireIfStale(ctx context.Context, raceID, userID string, now time.Time) (bool, error)
	// ExpireStale moves every pending prize whose expiresAt < now to expired.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	FindPendingByUser(ctx context.Context, userID string, now time.Time, limit int) ([]*models.RacePrize, error)
	FindByUser(ctx context.Context, userID string, limit int) ([]*models.RacePrize, error)
	FindByRace(ctx context.Context, raceID string, limit int) ([]*models.RacePrize, error)
	DeleteByRace(ctx context.Context, raceID string) (int64, error)
}

// RaceRepository defines the interface for race data operations
type RaceRepository interface {
	Create(ctx context.Context, race *models.Race) error
	FindByID(ctx context.Context, raceID string) (*models.Race, error)
	FindByStatus(ctx context.Context, status models.RaceStatus) ([]*models.Race, error)
	IncrementPool(ctx context.Context, raceID string, amount float64) error
	// SetPool overwrites the prize pool of an active race; it reports false
	// when the race is no longer active.
	SetPool(ctx context.Context, raceID string, amount float64) (bool, error)
	// MarkStatus moves the race from one status to another; it reports false
	// when the race was not in the from status.
	MarkStatus(ctx context.Context, raceID string, from, to models.RaceStatus, at time.Time) (bool, error)
}

// RoundRepository defines the interface for crash round history
type RoundRepository interface {
	Create(ctx context.Context, round *models.CrashRound) error
	FindRecent(ctx context.Context, limit int) ([]*models.CrashRound, error)
	Stats(ctx context.Context) (*models.RoundStats, error)
}
