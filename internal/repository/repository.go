package repository

import (
	"alumbra/coaching-app/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound      = RepositoryError("not found")
	ErrDuplicate     = RepositoryError("duplicate")
	ErrUpdateFailed  = RepositoryError("update failed")
	ErrNoStateChange = RepositoryError("state unchanged") // CAS filter matched nothing
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// AccountRepository defines the interface for interacting with account data.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Account, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddStudentToCoach(ctx context.Context, coachID, studentID primitive.ObjectID) error
	RemoveStudentFromCoach(ctx context.Context, coachID, studentID primitive.ObjectID) error
	GetStudentsByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.Account, error)
	SetCoachForStudent(ctx context.Context, studentID, coachID primitive.ObjectID) error
	SetRoutineForStudent(ctx context.Context, studentID, routineID primitive.ObjectID) error
}

// RoutineRepository defines the interface for interacting with routine data.
type RoutineRepository interface {
	Create(ctx context.Context, routine *domain.Routine) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Routine, error)
	GetActiveByStudentID(ctx context.Context, studentID primitive.ObjectID) (*domain.Routine, error)
	ReplaceUnit(ctx context.Context, routineID primitive.ObjectID, loc domain.UnitLocation, unit domain.ExerciseUnit) error
	// AdvanceWeek bumps currentWeek from the observed value to observed+1.
	// Returns ErrNoStateChange when the stored counter no longer matches.
	AdvanceWeek(ctx context.Context, routineID primitive.ObjectID, fromWeek int) error
	SetCoach(ctx context.Context, routineID, coachID primitive.ObjectID) error
}

// ProgressRepository defines the interface for interacting with the
// per-student week progress ledger. A week is one document, so recording
// is atomic: readers observe a fully committed week or none at all.
type ProgressRepository interface {
	// Create inserts a new week. Returns ErrDuplicate when the
	// (studentId, week) pair already exists.
	Create(ctx context.Context, progress *domain.WeekProgress) (primitive.ObjectID, error)
	GetByStudentAndWeek(ctx context.Context, studentID primitive.ObjectID, week int) (*domain.WeekProgress, error)
	// Replace swaps the stored week document for an amended revision.
	Replace(ctx context.Context, progress *domain.WeekProgress) error
	SetObservation(ctx context.Context, studentID primitive.ObjectID, week, dayIndex int, observation string) error
	// ListByStudent returns the ledger ordered by week ascending. An
	// optional inclusive week range narrows the result; zero bounds mean
	// unbounded.
	ListByStudent(ctx context.Context, studentID primitive.ObjectID, fromWeek, toWeek int) ([]domain.WeekProgress, error)
	HighestWeek(ctx context.Context, studentID primitive.ObjectID) (int, error)
}

// InvitationRepository defines the interface for interacting with
// invitation codes. State transitions are compare-and-swap on the status
// field so that concurrent redemptions resolve to exactly one winner.
type InvitationRepository interface {
	Create(ctx context.Context, code *domain.InvitationCode) (primitive.ObjectID, error)
	GetByCode(ctx context.Context, code string) (*domain.InvitationCode, error)
	GetByCodeID(ctx context.Context, codeID string) (*domain.InvitationCode, error)
	ListByIssuer(ctx context.Context, adminID primitive.ObjectID) ([]domain.InvitationCode, error)
	// Consume transitions valid -> used, stamping usedAt/usedBy.
	// Returns ErrNoStateChange when the code was not in the valid state.
	Consume(ctx context.Context, codeID string, usedBy primitive.ObjectID, usedAt time.Time) error
	// Expire transitions valid -> expired. Returns ErrNoStateChange when
	// the code was not in the valid state.
	Expire(ctx context.Context, codeID string) error
	// ExpireOverdue expires every valid code whose window elapsed before
	// the cutoff. Advisory sweep; returns the number of codes flipped.
	ExpireOverdue(ctx context.Context, cutoff time.Time) (int64, error)
}

// TemplateRepository defines the interface for interacting with a coach's
// exercise template library.
type TemplateRepository interface {
	Create(ctx context.Context, template *domain.ExerciseTemplate) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseTemplate, error)
	GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.ExerciseTemplate, error)
	Update(ctx context.Context, template *domain.ExerciseTemplate) error
	Delete(ctx context.Context, id, coachID primitive.ObjectID) error
}

// MediaRepository defines the interface for interacting with uploaded
// media metadata.
type MediaRepository interface {
	Create(ctx context.Context, asset *domain.MediaAsset) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.MediaAsset, error)
	GetByTemplateID(ctx context.Context, templateID primitive.ObjectID) (*domain.MediaAsset, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
