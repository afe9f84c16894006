package mongo

import (
	"alumbra/coaching-app/internal/domain"
	"alumbra/coaching-app/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const routineCollectionName = "routines"

// mongoRoutineRepository implements repository.RoutineRepository.
// A routine is stored as one document holding the whole day/block/exercise
// tree, so every mutation below is atomic per routine.
type mongoRoutineRepository struct {
	collection *mongo.Collection
}

// NewMongoRoutineRepository creates a new Routine repository.
func NewMongoRoutineRepository(db *mongo.Database) repository.RoutineRepository {
	return &mongoRoutineRepository{
		collection: db.Collection(routineCollectionName),
	}
}

// Create inserts a new routine.
func (r *mongoRoutineRepository) Create(ctx context.Context, routine *domain.Routine) (primitive.ObjectID, error) {
	if routine.StudentID == primitive.NilObjectID || routine.CoachID == primitive.NilObjectID || routine.Name == "" {
		return primitive.NilObjectID, errors.New("routine requires studentId, coachId, and name")
	}
	routine.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	routine.CreatedAt = now
	routine.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, routine)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted routine ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single routine by its ID.
func (r *mongoRoutineRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Routine, error) {
	var routine domain.Routine
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&routine)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &routine, nil
}

// GetActiveByStudentID retrieves the student's current routine, newest first
// if the student somehow has more than one.
func (r *mongoRoutineRepository) GetActiveByStudentID(ctx context.Context, studentID primitive.ObjectID) (*domain.Routine, error) {
	var routine domain.Routine
	findOptions := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := r.collection.FindOne(ctx, bson.M{"studentId": studentID}, findOptions).Decode(&routine)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &routine, nil
}

// ReplaceUnit swaps the exercise unit at the given tree position. The
// positional update fails with ErrNotFound when any index is out of range,
// because the array path does not exist on the stored document.
func (r *mongoRoutineRepository) ReplaceUnit(ctx context.Context, routineID primitive.ObjectID, loc domain.UnitLocation, unit domain.ExerciseUnit) error {
	path := fmt.Sprintf("days.%d.blocks.%d.exercises.%d", loc.Day, loc.Block, loc.Exercise)
	filter := bson.M{
		"_id": routineID,
		path:  bson.M{"$exists": true},
	}
	update := bson.M{
		"$set": bson.M{
			path:        unit,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AdvanceWeek bumps the current-week counter by exactly one, guarded by the
// value the caller observed. A stale observation matches nothing and
// surfaces as ErrNoStateChange so the service can re-read and retry.
func (r *mongoRoutineRepository) AdvanceWeek(ctx context.Context, routineID primitive.ObjectID, fromWeek int) error {
	filter := bson.M{"_id": routineID, "currentWeek": fromWeek}
	update := bson.M{
		"$inc": bson.M{"currentWeek": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Distinguish a missing routine from a lost CAS race.
		if _, getErr := r.GetByID(ctx, routineID); errors.Is(getErr, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return repository.ErrNoStateChange
	}
	return nil
}

// SetCoach rewrites the owning coach on a routine (student reassignment).
func (r *mongoRoutineRepository) SetCoach(ctx context.Context, routineID, coachID primitive.ObjectID) error {
	filter := bson.M{"_id": routineID}
	update := bson.M{
		"$set": bson.M{
			"coachId":   coachID,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureRoutineIndexes creates necessary indexes. Call during startup.
func EnsureRoutineIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "studentId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
