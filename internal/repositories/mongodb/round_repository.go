package mongodb

import (
	"context"

	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure RoundRepository implements the interface
var _ repositories.RoundRepository = (*RoundRepository)(nil)

// RoundRepository handles MongoDB operations for CrashRound
type RoundRepository struct {
	collection *mongo.Collection
}

// NewRoundRepository creates a new RoundRepository
func NewRoundRepository(db *mongo.Database) *RoundRepository {
	return &RoundRepository{
		collection: db.Collection(roundsCollection),
	}
}

// Create records a round
func (r *RoundRepository) Create(ctx context.Context, round *models.CrashRound) error {
	round.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, round)
	return translate("create round", err, nil)
}

// FindRecent returns the latest rounds, newest first
func (r *RoundRepository) FindRecent(ctx context.Context, limit int) ([]*models.CrashRound, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, translate("find rounds", err, nil)
	}
	defer cursor.Close(ctx)

	var rounds []*models.CrashRound
	if err := cursor.All(ctx, &rounds); err != nil {
		return nil, translate("decode rounds", err, nil)
	}
	if rounds == nil {
		rounds = []*models.CrashRound{}
	}
	return rounds, nil
}

// Stats aggregates every recorded round in one pipeline
func (r *RoundRepository) Stats(ctx context.Context) (*models.RoundStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"totalRounds":   bson.M{"$sum": 1},
			"avgMultiplier": bson.M{"$avg": "$crashMultiplier"},
			"minMultiplier": bson.M{"$min": "$crashMultiplier"},
			"maxMultiplier": bson.M{"$max": "$crashMultiplier"},
			"degradedRounds": bson.M{"$sum": bson.M{
				"$cond": bson.A{"$degraded", 1, 0},
			}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate("aggregate rounds", err, nil)
	}
	defer cursor.Close(ctx)

	var stats []models.RoundStats
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, translate("decode round stats", err, nil)
	}
	if len(stats) == 0 {
		return &models.RoundStats{}, nil
	}
	return &stats[0], nil
}
