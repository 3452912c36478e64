package mongodb

import (
	"context"
	"errors"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure ParticipantRepository implements the interface
var _ repositories.ParticipantStore = (*ParticipantRepository)(nil)

// ParticipantRepository handles MongoDB operations for RaceParticipant
type ParticipantRepository struct {
	collection *mongo.Collection
}

// NewParticipantRepository creates a new ParticipantRepository
func NewParticipantRepository(db *mongo.Database) *ParticipantRepository {
	return &ParticipantRepository{
		collection: db.Collection(participantsCollection),
	}
}

// RecordActivity atomically upserts the participant row and adds the activity
// to its running totals.
func (r *ParticipantRepository) RecordActivity(ctx context.Context, a models.Activity) (*models.RaceParticipant, bool, error) {
	var won int64
	if a.Won {
		won = 1
	}
	filter := bson.M{"raceId": a.RaceID, "userId": a.UserID}
	update := bson.M{
		"$inc": bson.M{
			"totalBetAmount":     a.BetAmount,
			"totalWinAmount":     a.WinAmount,
			"netProfit":          a.WinAmount - a.BetAmount,
			"contributionToPool": a.Contribution,
			"sessionCount":       int64(1),
			"winCount":           won,
		},
		"$set": bson.M{"lastUpdateTime": a.At},
		"$setOnInsert": bson.M{
			"rank":      0,
			"createdAt": a.At,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var participant models.RaceParticipant
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&participant)
	if mongo.IsDuplicateKeyError(err) {
		// Two first-time upserts raced on the unique index; the row exists now.
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&participant)
	}
	if err != nil {
		return nil, false, translate("record activity", err, nil)
	}
	// Every call adds exactly one session, so a count of one means this call inserted.
	return &participant, participant.SessionCount == 1, nil
}

// FindOne finds a participant by race and user
func (r *ParticipantRepository) FindOne(ctx context.Context, raceID, userID string) (*models.RaceParticipant, error) {
	var participant models.RaceParticipant
	err := r.collection.FindOne(ctx, bson.M{"raceId": raceID, "userId": userID}).Decode(&participant)
	if err != nil {
		return nil, translate("find participant", err, apperrors.ErrParticipantNotFound)
	}
	return &participant, nil
}

// FindTop returns up to limit participants in leaderboard order
func (r *ParticipantRepository) FindTop(ctx context.Context, raceID string, limit int) ([]*models.RaceParticipant, error) {
	opts := options.Find().SetSort(leaderboardSort).SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{"raceId": raceID}, opts)
	if err != nil {
		return nil, translate("find leaderboard", err, nil)
	}
	defer cursor.Close(ctx)

	var participants []*models.RaceParticipant
	if err := cursor.All(ctx, &participants); err != nil {
		return nil, translate("decode leaderboard", err, nil)
	}
	if participants == nil {
		participants = []*models.RaceParticipant{}
	}
	return participants, nil
}

// AssignRanks writes the rank of every participant in one unordered bulk write
func (r *ParticipantRepository) AssignRanks(ctx context.Context, raceID string, ordered []*models.RaceParticipant) error {
	if len(ordered) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(ordered))
	for i, p := range ordered {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"raceId": raceID, "userId": p.UserID}).
			SetUpdate(bson.M{"$set": bson.M{"rank": i + 1}}))
	}
	_, err := r.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return translate("assign ranks", err, nil)
}

// PruneBeyond deletes every participant that orders strictly after the
// keep-th entry. The predicate is evaluated per document by the server, so a
// row that climbs above the cutoff concurrently is never removed.
func (r *ParticipantRepository) PruneBeyond(ctx context.Context, raceID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	opts := options.FindOne().SetSort(leaderboardSort).SetSkip(int64(keep - 1))
	var cutoff models.RaceParticipant
	err := r.collection.FindOne(ctx, bson.M{"raceId": raceID}, opts).Decode(&cutoff)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, translate("find prune cutoff", err, nil)
	}

	filter := bson.M{
		"raceId": raceID,
		"$or": bson.A{
			bson.M{"netProfit": bson.M{"$lt": cutoff.NetProfit}},
			bson.M{"netProfit": cutoff.NetProfit, "totalBetAmount": bson.M{"$lt": cutoff.TotalBetAmount}},
			bson.M{
				"netProfit":      cutoff.NetProfit,
				"totalBetAmount": cutoff.TotalBetAmount,
				"lastUpdateTime": bson.M{"$gt": cutoff.LastUpdateTime},
			},
			bson.M{
				"netProfit":      cutoff.NetProfit,
				"totalBetAmount": cutoff.TotalBetAmount,
				"lastUpdateTime": cutoff.LastUpdateTime,
				"userId":         bson.M{"$gt": cutoff.UserID},
			},
		},
	}
	res, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, translate("prune leaderboard", err, nil)
	}
	return res.DeletedCount, nil
}

// CountByRace counts participants in a race
func (r *ParticipantRepository) CountByRace(ctx context.Context, raceID string) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"raceId": raceID})
	return n, translate("count participants", err, nil)
}

// SumContributions totals contributionToPool over the race's rows
func (r *ParticipantRepository) SumContributions(ctx context.Context, raceID string) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"raceId": raceID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$contributionToPool"}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, translate("sum contributions", err, nil)
	}
	defer cursor.Close(ctx)

	var out []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, translate("decode contributions", err, nil)
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Total, nil
}

// DeleteByRace removes all participants of a race
func (r *ParticipantRepository) DeleteByRace(ctx context.Context, raceID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"raceId": raceID})
	if err != nil {
		return 0, translate("delete participants", err, nil)
	}
	return res.DeletedCount, nil
}
