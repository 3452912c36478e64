package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaceStatus represents the lifecycle state of a race
type RaceStatus string

const (
	RaceStatusActive  RaceStatus = "active"
	RaceStatusSettled RaceStatus = "settled"
	RaceStatusPurged  RaceStatus = "purged"
)

// PayoutTier assigns a share of the prize pool to every rank in [RankRangeStart, RankRangeEnd].
type PayoutTier struct {
	RankRangeStart int     `bson:"rankRangeStart" json:"rankRangeStart" mapstructure:"rankRangeStart"`
	RankRangeEnd   int     `bson:"rankRangeEnd" json:"rankRangeEnd" mapstructure:"rankRangeEnd"`
	Percentage     float64 `bson:"percentage" json:"percentage" mapstructure:"percentage"`
}

// Covers reports whether rank falls inside the tier's range
func (p PayoutTier) Covers(rank int) bool {
	return rank >= p.RankRangeStart && rank <= p.RankRangeEnd
}

// Race is a time-boxed competition with its own leaderboard and prize pool
type Race struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RaceID    string             `bson:"raceId" json:"raceId"`
	Name      string             `bson:"name" json:"name"`
	StartTime time.Time          `bson:"startTime" json:"startTime"`
	EndTime   time.Time          `bson:"endTime" json:"endTime"`
	PrizePool float64            `bson:"prizePool" json:"prizePool"`
	// BasePrizePool is the pool the race was created with, before contributions.
	BasePrizePool        float64      `bson:"basePrizePool" json:"basePrizePool"`
	PoolContributionRate float64      `bson:"poolContributionRate" json:"poolContributionRate"`
	PayoutSchedule       []PayoutTier `bson:"payoutSchedule" json:"payoutSchedule"`
	Status               RaceStatus   `bson:"status" json:"status"`
	SettledAt            *time.Time   `bson:"settledAt,omitempty" json:"settledAt,omitempty"`
	CreatedAt            time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// IsOpen reports whether activity at t counts toward the race
func (r *Race) IsOpen(t time.Time) bool {
	return r.Status == RaceStatusActive && !t.Before(r.StartTime) && t.Before(r.EndTime)
}

// HasEnded reports whether the race window is closed at t
func (r *Race) HasEnded(t time.Time) bool {
	return !t.Before(r.EndTime)
}
