package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between account roles
type Role string

// Define constants for roles
const (
	RoleAdmin   Role = "admin"
	RoleCoach   Role = "coach"
	RoleStudent Role = "student"
)

// ValidRole reports whether r is one of the known account roles.
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleCoach || r == RoleStudent
}

// Account represents a user in the system (Admin, Coach or Student).
// Role-specific fields are kept on the same document and discriminated
// by Role rather than modelled as separate collections.
type Account struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Unique, stored lowercase
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// --- Coach-specific ---
	// ObjectIDs of students owned by this coach.
	StudentIDs []primitive.ObjectID `bson:"studentIds,omitempty" json:"studentIds,omitempty"`

	// --- Student-specific ---
	// Back-reference to the owning coach and to the current routine.
	CoachID   *primitive.ObjectID `bson:"coachId,omitempty" json:"coachId,omitempty"`
	RoutineID *primitive.ObjectID `bson:"routineId,omitempty" json:"routineId,omitempty"`
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a *Account) IsCoach() bool {
	return a.Role == RoleCoach
}

func (a *Account) IsStudent() bool {
	return a.Role == RoleStudent
}

// OwnedBy reports whether the account is a student owned by the given coach.
func (a *Account) OwnedBy(coachID primitive.ObjectID) bool {
	return a.IsStudent() && a.CoachID != nil && *a.CoachID == coachID
}
