// Package repotest provides in-memory implementations of the repository
// interfaces for tests. Every method holds one mutex for its whole body, which
// gives the same per-operation atomicity as the MongoDB implementations.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/repositories"
)

var (
	_ repositories.ParticipantStore = (*Participants)(nil)
	_ repositories.PrizeStore       = (*Prizes)(nil)
	_ repositories.RaceRepository   = (*Races)(nil)
	_ repositories.RoundRepository  = (*Rounds)(nil)
)

type key struct{ raceID, userID string }

// Participants is an in-memory ParticipantStore. Setting Err makes every call fail.
type Participants struct {
	mu   sync.Mutex
	rows map[key]*models.RaceParticipant
	Err  error
}

// NewParticipants creates an empty store
func NewParticipants() *Participants {
	return &Participants{rows: map[key]*models.RaceParticipant{}}
}

func (s *Participants) RecordActivity(_ context.Context, a models.Activity) (*models.RaceParticipant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, false, s.Err
	}
	k := key{a.RaceID, a.UserID}
	p, ok := s.rows[k]
	if !ok {
		p = &models.RaceParticipant{RaceID: a.RaceID, UserID: a.UserID, CreatedAt: a.At}
		s.rows[k] = p
	}
	p.TotalBetAmount += a.BetAmount
	p.TotalWinAmount += a.WinAmount
	p.NetProfit += a.WinAmount - a.BetAmount
	p.ContributionToPool += a.Contribution
	p.SessionCount++
	if a.Won {
		p.WinCount++
	}
	p.LastUpdateTime = a.At
	cp := *p
	return &cp, !ok, nil
}

func (s *Participants) FindOne(_ context.Context, raceID, userID string) (*models.RaceParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.rows[key{raceID, userID}]
	if !ok {
		return nil, apperrors.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Participants) FindTop(_ context.Context, raceID string, limit int) ([]*models.RaceParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	sorted := s.sorted(raceID)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]*models.RaceParticipant, len(sorted))
	for i, p := range sorted {
		cp := *p
		out[i] = &cp
	}
	return out, nil
}

func (s *Participants) AssignRanks(_ context.Context, raceID string, ordered []*models.RaceParticipant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for i, p := range ordered {
		if row, ok := s.rows[key{raceID, p.UserID}]; ok {
			row.Rank = i + 1
		}
	}
	return nil
}

func (s *Participants) PruneBeyond(_ context.Context, raceID string, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	sorted := s.sorted(raceID)
	if keep <= 0 || len(sorted) <= keep {
		return 0, nil
	}
	cutoff := sorted[keep-1]
	var deleted int64
	for _, p := range sorted[keep:] {
		if cutoff.RankBefore(p) {
			delete(s.rows, key{raceID, p.UserID})
			deleted++
		}
	}
	return deleted, nil
}

func (s *Participants) CountByRace(_ context.Context, raceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return int64(len(s.sorted(raceID))), nil
}

func (s *Participants) SumContributions(_ context.Context, raceID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var sum float64
	for _, p := range s.sorted(raceID) {
		sum += p.ContributionToPool
	}
	return sum, nil
}

func (s *Participants) DeleteByRace(_ context.Context, raceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for k := range s.rows {
		if k.raceID == raceID {
			delete(s.rows, k)
			n++
		}
	}
	return n, nil
}

func (s *Participants) sorted(raceID string) []*models.RaceParticipant {
	var out []*models.RaceParticipant
	for k, p := range s.rows {
		if k.raceID == raceID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RankBefore(out[j]) })
	return out
}

// Prizes is an in-memory PrizeStore. Setting Err makes every call fail.
type Prizes struct {
	mu   sync.Mutex
	rows map[key]*models.RacePrize
	Err  error
}

// NewPrizes creates an empty store
func NewPrizes() *Prizes {
	return &Prizes{rows: map[key]*models.RacePrize{}}
}

// Put stores a prize directly, replacing any existing row
func (s *Prizes) Put(p *models.RacePrize) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.rows[key{p.RaceID, p.UserID}] = &cp
}

func (s *Prizes) InsertMany(_ context.Context, prizes []*models.RacePrize) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, false, s.Err
	}
	inserted, duplicate := 0, false
	for _, p := range prizes {
		k := key{p.RaceID, p.UserID}
		if _, ok := s.rows[k]; ok {
			duplicate = true
			continue
		}
		cp := *p
		s.rows[k] = &cp
		inserted++
	}
	return inserted, duplicate, nil
}

func (s *Prizes) FindOne(_ context.Context, raceID, userID string) (*models.RacePrize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.rows[key{raceID, userID}]
	if !ok {
		return nil, apperrors.ErrPrizeNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Prizes) CountByRace(_ context.Context, raceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for k := range s.rows {
		if k.raceID == raceID {
			n++
		}
	}
	return n, nil
}

func (s *Prizes) ClaimPending(_ context.Context, raceID, userID string, now time.Time) (*models.RacePrize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.rows[key{raceID, userID}]
	if !ok || p.Status != models.PrizeStatusPending || p.ExpiresAt.Before(now) {
		return nil, nil
	}
	p.Status = models.PrizeStatusClaimed
	claimedAt := now
	p.ClaimedAt = &claimedAt
	cp := *p
	return &cp, nil
}

func (s *Prizes) ExpireIfStale(_ context.Context, raceID, userID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	p, ok := s.rows[key{raceID, userID}]
	if !ok || p.Status != models.PrizeStatusPending || !p.ExpiresAt.Before(now) {
		return false, nil
	}
	p.Status = models.PrizeStatusExpired
	return true, nil
}

func (s *Prizes) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, p := range s.rows {
		if p.Status == models.PrizeStatusPending && p.ExpiresAt.Before(now) {
			p.Status = models.PrizeStatusExpired
			n++
		}
	}
	return n, nil
}

func (s *Prizes) FindPendingByUser(_ context.Context, userID string, now time.Time, limit int) ([]*models.RacePrize, error) {
	return s.find(func(p *models.RacePrize) bool {
		return p.UserID == userID && p.Status == models.PrizeStatusPending && !p.ExpiresAt.Before(now)
	}, newestFirst, limit)
}

func (s *Prizes) FindByUser(_ context.Context, userID string, limit int) ([]*models.RacePrize, error) {
	return s.find(func(p *models.RacePrize) bool { return p.UserID == userID }, newestFirst, limit)
}

func (s *Prizes) FindByRace(_ context.Context, raceID string, limit int) ([]*models.RacePrize, error) {
	return s.find(func(p *models.RacePrize) bool { return p.RaceID == raceID }, func(a, b *models.RacePrize) bool {
		return a.Rank < b.Rank
	}, limit)
}

func (s *Prizes) DeleteByRace(_ context.Context, raceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for k := range s.rows {
		if k.raceID == raceID {
			delete(s.rows, k)
			n++
		}
	}
	return n, nil
}

func newestFirst(a, b *models.RacePrize) bool { return a.CreatedAt.After(b.CreatedAt) }

func (s *Prizes) find(match func(*models.RacePrize) bool, less func(a, b *models.RacePrize) bool, limit int) ([]*models.RacePrize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []*models.RacePrize{}
	for _, p := range s.rows {
		if match(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Races is an in-memory RaceRepository. Setting Err makes every call fail;
// PoolErr fails only IncrementPool.
type Races struct {
	mu      sync.Mutex
	rows    map[string]*models.Race
	Err     error
	PoolErr error
}

// NewRaces creates an empty store
func NewRaces() *Races {
	return &Races{rows: map[string]*models.Race{}}
}

func (s *Races) Create(_ context.Context, race *models.Race) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.rows[race.RaceID]; ok {
		return apperrors.ErrRaceExists
	}
	cp := *race
	s.rows[race.RaceID] = &cp
	return nil
}

func (s *Races) FindByID(_ context.Context, raceID string) (*models.Race, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	r, ok := s.rows[raceID]
	if !ok {
		return nil, apperrors.ErrRaceNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Races) FindByStatus(_ context.Context, status models.RaceStatus) ([]*models.Race, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []*models.Race{}
	for _, r := range s.rows {
		if r.Status == status {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return out, nil
}

func (s *Races) IncrementPool(_ context.Context, raceID string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.PoolErr != nil {
		return s.PoolErr
	}
	r, ok := s.rows[raceID]
	if !ok {
		return apperrors.ErrRaceNotFound
	}
	r.PrizePool += amount
	return nil
}

func (s *Races) SetPool(_ context.Context, raceID string, amount float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	r, ok := s.rows[raceID]
	if !ok || r.Status != models.RaceStatusActive {
		return false, nil
	}
	r.PrizePool = amount
	return true, nil
}

func (s *Races) MarkStatus(_ context.Context, raceID string, from, to models.RaceStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	r, ok := s.rows[raceID]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = at
	if to == models.RaceStatusSettled {
		settledAt := at
		r.SettledAt = &settledAt
	}
	return true, nil
}

// Rounds is an in-memory RoundRepository. Setting Err makes every call fail.
type Rounds struct {
	mu   sync.Mutex
	rows []*models.CrashRound
	Err  error
}

// NewRounds creates an empty store
func NewRounds() *Rounds {
	return &Rounds{}
}

func (s *Rounds) Create(_ context.Context, round *models.CrashRound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cp := *round
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *Rounds) FindRecent(_ context.Context, limit int) ([]*models.CrashRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []*models.CrashRound{}
	for i := len(s.rows) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.rows[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Rounds) Stats(_ context.Context) (*models.RoundStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	stats := &models.RoundStats{}
	var sum float64
	for i, r := range s.rows {
		if i == 0 || r.CrashMultiplier < stats.MinMultiplier {
			stats.MinMultiplier = r.CrashMultiplier
		}
		if r.CrashMultiplier > stats.MaxMultiplier {
			stats.MaxMultiplier = r.CrashMultiplier
		}
		if r.Degraded {
			stats.DegradedRounds++
		}
		sum += r.CrashMultiplier
		stats.TotalRounds++
	}
	if stats.TotalRounds > 0 {
		stats.AvgMultiplier = sum / float64(stats.TotalRounds)
	}
	return stats, nil
}
