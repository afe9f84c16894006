package mongo

import (
	"alumbra/coaching-app/internal/domain"
	"alumbra/coaching-app/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const invitationCollectionName = "invitation_codes"

// mongoInvitationRepository implements repository.InvitationRepository.
// Every state transition is a single filtered UpdateOne on the status
// field, which is what guarantees exactly one winner under concurrent
// redemption: the second CAS finds the filter no longer matches.
type mongoInvitationRepository struct {
	collection *mongo.Collection
}

// NewMongoInvitationRepository creates a new Invitation repository.
func NewMongoInvitationRepository(db *mongo.Database) repository.InvitationRepository {
	return &mongoInvitationRepository{
		collection: db.Collection(invitationCollectionName),
	}
}

// Create inserts a new invitation code.
func (r *mongoInvitationRepository) Create(ctx context.Context, code *domain.InvitationCode) (primitive.ObjectID, error) {
	if code.Code == "" || code.CodeID == "" || code.IssuedBy == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("invitation requires code, codeId, and issuedBy")
	}
	code.ID = primitive.NewObjectID()

	result, err := r.collection.InsertOne(ctx, code)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted invitation ID")
	}
	return insertedID, nil
}

// GetByCode retrieves an invitation by its opaque code string.
func (r *mongoInvitationRepository) GetByCode(ctx context.Context, code string) (*domain.InvitationCode, error) {
	var invitation domain.InvitationCode
	err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&invitation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &invitation, nil
}

// GetByCodeID retrieves an invitation by its stable external identifier.
func (r *mongoInvitationRepository) GetByCodeID(ctx context.Context, codeID string) (*domain.InvitationCode, error) {
	var invitation domain.InvitationCode
	err := r.collection.FindOne(ctx, bson.M{"codeId": codeID}).Decode(&invitation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &invitation, nil
}

// ListByIssuer retrieves all codes issued by one admin, newest first.
func (r *mongoInvitationRepository) ListByIssuer(ctx context.Context, adminID primitive.ObjectID) ([]domain.InvitationCode, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"issuedBy": adminID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var codes []domain.InvitationCode
	if err = cursor.All(ctx, &codes); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

// Consume transitions valid -> used in one atomic write.
func (r *mongoInvitationRepository) Consume(ctx context.Context, codeID string, usedBy primitive.ObjectID, usedAt time.Time) error {
	filter := bson.M{"codeId": codeID, "status": domain.InvitationValid}
	update := bson.M{
		"$set": bson.M{
			"status": domain.InvitationUsed,
			"usedAt": usedAt,
			"usedBy": usedBy,
		},
	}
	return r.casUpdate(ctx, codeID, filter, update)
}

// Expire transitions valid -> expired.
func (r *mongoInvitationRepository) Expire(ctx context.Context, codeID string) error {
	filter := bson.M{"codeId": codeID, "status": domain.InvitationValid}
	update := bson.M{"$set": bson.M{"status": domain.InvitationExpired}}
	return r.casUpdate(ctx, codeID, filter, update)
}

func (r *mongoInvitationRepository) casUpdate(ctx context.Context, codeID string, filter, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		if _, getErr := r.GetByCodeID(ctx, codeID); errors.Is(getErr, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return repository.ErrNoStateChange
	}
	return nil
}

// ExpireOverdue flips every overdue valid code to expired. Advisory sweep
// for reporting; lazy expiry on redemption keeps the registry correct
// without it.
func (r *mongoInvitationRepository) ExpireOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"status":    domain.InvitationValid,
		"expiresAt": bson.M{"$lt": cutoff},
	}
	update := bson.M{"$set": bson.M{"status": domain.InvitationExpired}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// EnsureInvitationIndexes creates necessary indexes. Call during startup.
func EnsureInvitationIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "codeId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "issuedBy", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
