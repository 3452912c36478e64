package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/ArowuTest/crashrace-backend/internal/models"
)

func pendingPrize(raceID, userID string, createdAt time.Time) *models.RacePrize {
	return &models.RacePrize{
		RaceID:      raceID,
		UserID:      userID,
		Rank:        1,
		PrizeAmount: 50,
		Percentage:  0.5,
		Status:      models.PrizeStatusPending,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(7 * 24 * time.Hour),
	}
}

func TestClaim_PendingPrize(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.prizes.Put(pendingPrize("r1", "alice", f.clock.Now()))
	ctx := context.Background()

	prize, err := f.claims.Claim(ctx, "r1", "alice")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if prize.Status != models.PrizeStatusClaimed || prize.ClaimedAt == nil || !prize.ClaimedAt.Equal(f.clock.Now()) {
		t.Fatalf("unexpected claimed prize: %+v", prize)
	}

	if _, err := f.claims.Claim(ctx, "r1", "alice"); !errors.Is(err, apperrors.ErrPrizeAlreadyClaimed) {
		t.Errorf("second claim err = %v, want ALREADY_CLAIMED", err)
	}
}

func TestClaim_ConcurrentClaimsSucceedOnce(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.prizes.Put(pendingPrize("r1", "alice", f.clock.Now()))
	ctx := context.Background()

	const callers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.claims.Claim(ctx, "r1", "alice")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperrors.ErrPrizeAlreadyClaimed):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != callers-1 {
		t.Errorf("successes = %d, conflicts = %d; want 1 and %d", successes, conflicts, callers-1)
	}
}

func TestClaim_ExpiredPrize(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.prizes.Put(pendingPrize("r1", "alice", f.clock.Now()))
	ctx := context.Background()

	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err := f.claims.Claim(ctx, "r1", "alice")
	if !errors.Is(err, apperrors.ErrPrizeExpired) {
		t.Fatalf("err = %v, want PRIZE_EXPIRED", err)
	}
	if apperrors.KindOf(err) != apperrors.KindExpired {
		t.Errorf("kind = %s, want expired", apperrors.KindOf(err))
	}
	stored, _ := f.prizes.FindOne(ctx, "r1", "alice")
	if stored.Status != models.PrizeStatusExpired {
		t.Errorf("status = %s, want expired", stored.Status)
	}

	// The terminal state is reported on every later attempt.
	if _, err := f.claims.Claim(ctx, "r1", "alice"); !errors.Is(err, apperrors.ErrPrizeExpired) {
		t.Errorf("repeat claim err = %v, want PRIZE_EXPIRED", err)
	}
}

func TestClaim_AtExactDeadline(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.prizes.Put(pendingPrize("r1", "alice", f.clock.Now()))

	f.clock.Advance(7 * 24 * time.Hour)
	if _, err := f.claims.Claim(context.Background(), "r1", "alice"); err != nil {
		t.Fatalf("claim at deadline: %v", err)
	}
}

func TestClaim_NotFoundAndValidation(t *testing.T) {
	f := newFixture(t, testPolicy())
	ctx := context.Background()

	if _, err := f.claims.Claim(ctx, "r1", "nobody"); !errors.Is(err, apperrors.ErrPrizeNotFound) {
		t.Errorf("err = %v, want PRIZE_NOT_FOUND", err)
	}
	if _, err := f.claims.Claim(ctx, "", "alice"); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestPrizeQueries(t *testing.T) {
	f := newFixture(t, testPolicy())
	ctx := context.Background()
	now := f.clock.Now()

	f.prizes.Put(pendingPrize("r1", "alice", now.Add(-8*24*time.Hour))) // past its deadline, not yet swept
	f.prizes.Put(pendingPrize("r2", "alice", now.Add(-time.Hour)))
	f.prizes.Put(pendingPrize("r3", "alice", now))
	claimed := pendingPrize("r4", "alice", now.Add(-2*time.Hour))
	claimed.Status = models.PrizeStatusClaimed
	f.prizes.Put(claimed)
	f.prizes.Put(pendingPrize("r3", "bob", now))

	pending, err := f.claims.GetUserPendingPrizes(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserPendingPrizes: %v", err)
	}
	if len(pending) != 2 || pending[0].RaceID != "r3" || pending[1].RaceID != "r2" {
		t.Errorf("pending = %v, want r3 then r2", raceIDs(pending))
	}

	history, err := f.claims.GetUserPrizeHistory(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserPrizeHistory: %v", err)
	}
	if len(history) != 4 {
		t.Errorf("history has %d prizes, want 4", len(history))
	}

	expired, err := f.claims.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if expired != 1 {
		t.Errorf("expired %d prizes, want 1", expired)
	}
	if again, _ := f.claims.ExpireStale(ctx); again != 0 {
		t.Errorf("second sweep expired %d prizes, want 0", again)
	}
}

func raceIDs(prizes []*models.RacePrize) []string {
	ids := make([]string, len(prizes))
	for i, p := range prizes {
		ids[i] = p.RaceID
	}
	return ids
}
