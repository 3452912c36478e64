package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PrizeStatus represents the claim state of a prize. Transitions are
// pending -> claimed or pending -> expired, never back.
type PrizeStatus string

const (
	PrizeStatusPending PrizeStatus = "pending"
	PrizeStatusClaimed PrizeStatus = "claimed"
	PrizeStatusExpired PrizeStatus = "expired"
)

// RacePrize is a settled prize for one winner of a race
type RacePrize struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RaceID      string             `bson:"raceId" json:"raceId"`
	UserID      string             `bson:"userId" json:"userId"`
	Rank        int                `bson:"rank" json:"rank"`
	PrizeAmount float64            `bson:"prizeAmount" json:"prizeAmount"`
	Percentage  float64            `bson:"percentage" json:"percentage"`
	Status      PrizeStatus        `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	ClaimedAt   *time.Time         `bson:"claimedAt,omitempty" json:"claimedAt,omitempty"`
	ExpiresAt   time.Time          `bson:"expiresAt" json:"expiresAt"`

	// Snapshot taken at settlement; later ledger writes never touch it.
	NetProfit      float64   `bson:"netProfit" json:"netProfit"`
	SessionCount   int64     `bson:"sessionCount" json:"sessionCount"`
	TotalBetAmount float64   `bson:"totalBetAmount" json:"totalBetAmount"`
	TotalWinAmount float64   `bson:"totalWinAmount" json:"totalWinAmount"`
	RaceStartTime  time.Time `bson:"raceStartTime" json:"raceStartTime"`
	RaceEndTime    time.Time `bson:"raceEndTime" json:"raceEndTime"`
}
