package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	participantsCollection = "race_participants"
	prizesCollection       = "race_prizes"
	racesCollection        = "races"
	roundsCollection       = "crash_rounds"
)

// leaderboardSort is the total leaderboard order shared by reads and pruning.
var leaderboardSort = bson.D{
	{Key: "netProfit", Value: -1},
	{Key: "totalBetAmount", Value: -1},
	{Key: "lastUpdateTime", Value: 1},
	{Key: "userId", Value: 1},
}

// EnsureIndexes creates the unique and query indexes the repositories rely on.
// The unique (raceId, userId) indexes are what make settlement exactly-once.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		participantsCollection: {
			{
				Keys:    bson.D{{Key: "raceId", Value: 1}, {Key: "userId", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_race_user"),
			},
			{
				Keys:    append(bson.D{{Key: "raceId", Value: 1}}, leaderboardSort...),
				Options: options.Index().SetName("race_leaderboard"),
			},
		},
		prizesCollection: {
			{
				Keys:    bson.D{{Key: "raceId", Value: 1}, {Key: "userId", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_race_user"),
			},
			{
				Keys:    bson.D{{Key: "expiresAt", Value: 1}, {Key: "status", Value: 1}},
				Options: options.Index().SetName("expiry_sweep"),
			},
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("user_history"),
			},
		},
		racesCollection: {
			{
				Keys:    bson.D{{Key: "raceId", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_race"),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "endTime", Value: 1}},
				Options: options.Index().SetName("status_end"),
			},
		},
		roundsCollection: {
			{
				Keys:    bson.D{{Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("recent_rounds"),
			},
		},
	}

	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
