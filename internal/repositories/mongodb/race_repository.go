package mongodb

import (
	"context"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure RaceRepository implements the interface
var _ repositories.RaceRepository = (*RaceRepository)(nil)

// RaceRepository handles MongoDB operations for Race
type RaceRepository struct {
	collection *mongo.Collection
}

// NewRaceRepository creates a new RaceRepository
func NewRaceRepository(db *mongo.Database) *RaceRepository {
	return &RaceRepository{
		collection: db.Collection(racesCollection),
	}
}

// Create inserts a new race
func (r *RaceRepository) Create(ctx context.Context, race *models.Race) error {
	race.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, race)
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.ErrRaceExists
	}
	return translate("create race", err, nil)
}

// FindByID finds a race by its race id
func (r *RaceRepository) FindByID(ctx context.Context, raceID string) (*models.Race, error) {
	var race models.Race
	err := r.collection.FindOne(ctx, bson.M{"raceId": raceID}).Decode(&race)
	if err != nil {
		return nil, translate("find race", err, apperrors.ErrRaceNotFound)
	}
	return &race, nil
}

// FindByStatus finds races in a status, ending soonest first
func (r *RaceRepository) FindByStatus(ctx context.Context, status models.RaceStatus) ([]*models.Race, error) {
	opts := options.Find().SetSort(bson.M{"endTime": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, translate("find races", err, nil)
	}
	defer cursor.Close(ctx)

	var races []*models.Race
	if err := cursor.All(ctx, &races); err != nil {
		return nil, translate("decode races", err, nil)
	}
	if races == nil {
		races = []*models.Race{}
	}
	return races, nil
}

// IncrementPool atomically adds amount to the race prize pool
func (r *RaceRepository) IncrementPool(ctx context.Context, raceID string, amount float64) error {
	update := bson.M{
		"$inc": bson.M{"prizePool": amount},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"raceId": raceID}, update)
	if err != nil {
		return translate("increment prize pool", err, nil)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrRaceNotFound
	}
	return nil
}

// SetPool overwrites the prize pool while the race is still active
func (r *RaceRepository) SetPool(ctx context.Context, raceID string, amount float64) (bool, error) {
	filter := bson.M{"raceId": raceID, "status": models.RaceStatusActive}
	update := bson.M{"$set": bson.M{"prizePool": amount, "updatedAt": time.Now()}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, translate("set prize pool", err, nil)
	}
	return res.MatchedCount == 1, nil
}

// MarkStatus performs a conditional status transition
func (r *RaceRepository) MarkStatus(ctx context.Context, raceID string, from, to models.RaceStatus, at time.Time) (bool, error) {
	set := bson.M{"status": to, "updatedAt": at}
	if to == models.RaceStatusSettled {
		set["settledAt"] = at
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"raceId": raceID, "status": from}, bson.M{"$set": set})
	if err != nil {
		return false, translate("update race status", err, nil)
	}
	return res.ModifiedCount == 1, nil
}
