package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExerciseTemplate is a library entry a coach reuses when composing
// routine exercise units.
type ExerciseTemplate struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"`
	Name        string             `bson:"name" json:"name"`
	MuscleGroup string             `bson:"muscleGroup,omitempty" json:"muscleGroup,omitempty"`
	Technique   string             `bson:"technique,omitempty" json:"technique,omitempty"` // execution notes
	Difficulty  string             `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	VideoRef    string             `bson:"videoRef,omitempty" json:"videoRef,omitempty"` // object key or external URL
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
