package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure PrizeRepository implements the interface
var _ repositories.PrizeStore = (*PrizeRepository)(nil)

// PrizeRepository handles MongoDB operations for RacePrize
type PrizeRepository struct {
	collection *mongo.Collection
}

// NewPrizeRepository creates a new PrizeRepository
func NewPrizeRepository(db *mongo.Database) *PrizeRepository {
	return &PrizeRepository{
		collection: db.Collection(prizesCollection),
	}
}

// InsertMany inserts prizes unordered so one duplicate does not stop the rest
func (r *PrizeRepository) InsertMany(ctx context.Context, prizes []*models.RacePrize) (int, bool, error) {
	if len(prizes) == 0 {
		return 0, false, nil
	}
	docs := make([]interface{}, 0, len(prizes))
	for _, p := range prizes {
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		docs = append(docs, p)
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(prizes), false, nil
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && onlyDuplicateKeyErrors(bwe) {
		return len(prizes) - len(bwe.WriteErrors), true, nil
	}
	return 0, false, translate("insert prizes", err, nil)
}

// FindOne finds a prize by race and user
func (r *PrizeRepository) FindOne(ctx context.Context, raceID, userID string) (*models.RacePrize, error) {
	var prize models.RacePrize
	err := r.collection.FindOne(ctx, bson.M{"raceId": raceID, "userId": userID}).Decode(&prize)
	if err != nil {
		return nil, translate("find prize", err, apperrors.ErrPrizeNotFound)
	}
	return &prize, nil
}

// CountByRace counts prizes created for a race
func (r *PrizeRepository) CountByRace(ctx context.Context, raceID string) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"raceId": raceID})
	return n, translate("count prizes", err, nil)
}

// ClaimPending is a compare-and-swap on status == pending and expiresAt >= now
func (r *PrizeRepository) ClaimPending(ctx context.Context, raceID, userID string, now time.Time) (*models.RacePrize, error) {
	filter := bson.M{
		"raceId":    raceID,
		"userId":    userID,
		"status":    models.PrizeStatusPending,
		"expiresAt": bson.M{"$gte": now},
	}
	update := bson.M{"$set": bson.M{"status": models.PrizeStatusClaimed, "claimedAt": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var prize models.RacePrize
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&prize)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("claim prize", err, nil)
	}
	return &prize, nil
}

// ExpireIfStale expires a single pending prize past its deadline
func (r *PrizeRepository) ExpireIfStale(ctx context.Context, raceID, userID string, now time.Time) (bool, error) {
	filter := bson.M{
		"raceId":    raceID,
		"userId":    userID,
		"status":    models.PrizeStatusPending,
		"expiresAt": bson.M{"$lt": now},
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"status": models.PrizeStatusExpired}})
	if err != nil {
		return false, translate("expire prize", err, nil)
	}
	return res.ModifiedCount == 1, nil
}

// ExpireStale expires every pending prize past its deadline in one update
func (r *PrizeRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"expiresAt": bson.M{"$lt": now},
		"status":    models.PrizeStatusPending,
	}
	res, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"status": models.PrizeStatusExpired}})
	if err != nil {
		return 0, translate("expire stale prizes", err, nil)
	}
	return res.ModifiedCount, nil
}

// FindPendingByUser returns the user's claimable prizes, newest first
func (r *PrizeRepository) FindPendingByUser(ctx context.Context, userID string, now time.Time, limit int) ([]*models.RacePrize, error) {
	filter := bson.M{
		"userId":    userID,
		"status":    models.PrizeStatusPending,
		"expiresAt": bson.M{"$gte": now},
	}
	return r.find(ctx, "find pending prizes", filter, bson.D{{Key: "createdAt", Value: -1}}, limit)
}

// FindByUser returns the user's prizes in any status, newest first
func (r *PrizeRepository) FindByUser(ctx context.Context, userID string, limit int) ([]*models.RacePrize, error) {
	return r.find(ctx, "find prize history", bson.M{"userId": userID}, bson.D{{Key: "createdAt", Value: -1}}, limit)
}

// FindByRace returns a race's prizes ordered by rank
func (r *PrizeRepository) FindByRace(ctx context.Context, raceID string, limit int) ([]*models.RacePrize, error) {
	return r.find(ctx, "find race prizes", bson.M{"raceId": raceID}, bson.D{{Key: "rank", Value: 1}}, limit)
}

// DeleteByRace removes all prizes of a race
func (r *PrizeRepository) DeleteByRace(ctx context.Context, raceID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"raceId": raceID})
	if err != nil {
		return 0, translate("delete prizes", err, nil)
	}
	return res.DeletedCount, nil
}

func (r *PrizeRepository) find(ctx context.Context, op string, filter bson.M, sort bson.D, limit int) ([]*models.RacePrize, error) {
	opts := options.Find().SetSort(sort).SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(op, err, nil)
	}
	defer cursor.Close(ctx)

	var prizes []*models.RacePrize
	if err := cursor.All(ctx, &prizes); err != nil {
		return nil, translate(op, err, nil)
	}
	if prizes == nil {
		prizes = []*models.RacePrize{}
	}
	return prizes, nil
}
