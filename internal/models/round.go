package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CrashRound records one generated crash multiplier
type CrashRound struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RoundID         string             `bson:"roundId" json:"roundId"`
	CrashMultiplier float64            `bson:"crashMultiplier" json:"crashMultiplier"`
	Degraded        bool               `bson:"degraded" json:"degraded"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// RoundStats aggregates recorded rounds
type RoundStats struct {
	TotalRounds    int64   `bson:"totalRounds" json:"totalRounds"`
	AvgMultiplier  float64 `bson:"avgMultiplier" json:"avgMultiplier"`
	MinMultiplier  float64 `bson:"minMultiplier" json:"minMultiplier"`
	MaxMultiplier  float64 `bson:"maxMultiplier" json:"maxMultiplier"`
	DegradedRounds int64   `bson:"degradedRounds" json:"degradedRounds"`
}
