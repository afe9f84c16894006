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

const progressCollectionName = "week_progress"

// mongoProgressRepository implements repository.ProgressRepository. One
// week is one document; the unique (studentId, week) index is what turns a
// concurrent double-record into ErrDuplicate instead of a second entry.
type mongoProgressRepository struct {
	collection *mongo.Collection
}

// NewMongoProgressRepository creates a new Progress repository.
func NewMongoProgressRepository(db *mongo.Database) repository.ProgressRepository {
	return &mongoProgressRepository{
		collection: db.Collection(progressCollectionName),
	}
}

// Create inserts a new week progress document.
func (r *mongoProgressRepository) Create(ctx context.Context, progress *domain.WeekProgress) (primitive.ObjectID, error) {
	if progress.StudentID == primitive.NilObjectID || progress.Week < 1 {
		return primitive.NilObjectID, errors.New("progress requires studentId and a week >= 1")
	}
	progress.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	progress.RecordedAt = now
	progress.UpdatedAt = now
	if progress.Revision == 0 {
		progress.Revision = 1
	}

	result, err := r.collection.InsertOne(ctx, progress)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted progress ID")
	}
	return insertedID, nil
}

// GetByStudentAndWeek retrieves one recorded week.
func (r *mongoProgressRepository) GetByStudentAndWeek(ctx context.Context, studentID primitive.ObjectID, week int) (*domain.WeekProgress, error) {
	var progress domain.WeekProgress
	filter := bson.M{"studentId": studentID, "week": week}
	err := r.collection.FindOne(ctx, filter).Decode(&progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &progress, nil
}

// Replace swaps the whole day/exercise tree of an existing week in one
// write. The filter pins the revision the caller amended, so two racing
// amendments cannot both land.
func (r *mongoProgressRepository) Replace(ctx context.Context, progress *domain.WeekProgress) error {
	filter := bson.M{
		"studentId": progress.StudentID,
		"week":      progress.Week,
		"revision":  progress.Revision - 1,
	}
	update := bson.M{
		"$set": bson.M{
			"days":      progress.Days,
			"revision":  progress.Revision,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		if _, getErr := r.GetByStudentAndWeek(ctx, progress.StudentID, progress.Week); errors.Is(getErr, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return repository.ErrNoStateChange
	}
	return nil
}

// SetObservation edits the free-text observation of one recorded day.
// Everything else in the week stays immutable.
func (r *mongoProgressRepository) SetObservation(ctx context.Context, studentID primitive.ObjectID, week, dayIndex int, observation string) error {
	path := fmt.Sprintf("days.%d", dayIndex)
	filter := bson.M{
		"studentId": studentID,
		"week":      week,
		path:        bson.M{"$exists": true},
	}
	update := bson.M{
		"$set": bson.M{
			path + ".observation": observation,
			"updatedAt":           time.Now().UTC(),
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

// ListByStudent returns the ledger ordered by week ascending, optionally
// narrowed to an inclusive week range. Each call issues a fresh query, so
// the sequence is restartable by construction.
func (r *mongoProgressRepository) ListByStudent(ctx context.Context, studentID primitive.ObjectID, fromWeek, toWeek int) ([]domain.WeekProgress, error) {
	filter := bson.M{"studentId": studentID}
	if fromWeek > 0 || toWeek > 0 {
		weekRange := bson.M{}
		if fromWeek > 0 {
			weekRange["$gte"] = fromWeek
		}
		if toWeek > 0 {
			weekRange["$lte"] = toWeek
		}
		filter["week"] = weekRange
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "week", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var weeks []domain.WeekProgress
	if err = cursor.All(ctx, &weeks); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return weeks, nil
}

// HighestWeek returns the greatest recorded week number for a student, or
// zero when the ledger is empty.
func (r *mongoProgressRepository) HighestWeek(ctx context.Context, studentID primitive.ObjectID) (int, error) {
	var progress domain.WeekProgress
	findOptions := options.FindOne().SetSort(bson.D{{Key: "week", Value: -1}})
	err := r.collection.FindOne(ctx, bson.M{"studentId": studentID}, findOptions).Decode(&progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return progress.Week, nil
}

// EnsureProgressIndexes creates necessary indexes. Call during startup.
// The unique compound index is load-bearing: it is what makes week
// recording atomic per student.
func EnsureProgressIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "studentId", Value: 1}, {Key: "week", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
