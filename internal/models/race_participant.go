package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaceParticipant holds a player's cumulative statistics within one race
type RaceParticipant struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RaceID             string             `bson:"raceId" json:"raceId"`
	UserID             string             `bson:"userId" json:"userId"`
	TotalBetAmount     float64            `bson:"totalBetAmount" json:"totalBetAmount"`
	TotalWinAmount     float64            `bson:"totalWinAmount" json:"totalWinAmount"`
	NetProfit          float64            `bson:"netProfit" json:"netProfit"`
	ContributionToPool float64            `bson:"contributionToPool" json:"contributionToPool"`
	SessionCount       int64              `bson:"sessionCount" json:"sessionCount"`
	WinCount           int64              `bson:"winCount" json:"winCount"`
	Rank               int                `bson:"rank" json:"rank"` // 0 until the first recomputation
	LastUpdateTime     time.Time          `bson:"lastUpdateTime" json:"lastUpdateTime"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
}

// RankBefore reports whether p orders ahead of o on the leaderboard.
// Ties on net profit go to the higher bet volume, then to the earlier update,
// then to the lexically smaller user id so the order is total.
func (p *RaceParticipant) RankBefore(o *RaceParticipant) bool {
	if p.NetProfit != o.NetProfit {
		return p.NetProfit > o.NetProfit
	}
	if p.TotalBetAmount != o.TotalBetAmount {
		return p.TotalBetAmount > o.TotalBetAmount
	}
	if !p.LastUpdateTime.Equal(o.LastUpdateTime) {
		return p.LastUpdateTime.Before(o.LastUpdateTime)
	}
	return p.UserID < o.UserID
}

// Activity is one qualifying bet/win event reported by the game server
type Activity struct {
	RaceID    string
	UserID    string
	BetAmount float64
	WinAmount float64
	Won       bool
	// Contribution is the share of BetAmount added to the race prize pool.
	Contribution float64
	At           time.Time
}
