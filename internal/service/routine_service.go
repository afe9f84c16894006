package service

import (
	"alumbra/coaching-app/internal/apperr"
	"alumbra/coaching-app/internal/domain"
	"alumbra/coaching-app/internal/repository"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoutineService owns the routine tree: creation, targeted exercise
// replacement, and the current-week counter.
type RoutineService interface {
	Create(ctx context.Context, coachID, studentID primitive.ObjectID, name string, meta domain.RoutineMeta, days []domain.Day) (*domain.Routine, error)
	ReplaceExercise(ctx context.Context, coachID, routineID primitive.ObjectID, loc domain.UnitLocation, unit domain.ExerciseUnit) (*domain.Routine, error)
	AdvanceWeek(ctx context.Context, coachID, routineID primitive.ObjectID) (*domain.Routine, error)
	GetCurrent(ctx context.Context, callerID primitive.ObjectID, callerRole domain.Role, studentID primitive.ObjectID) (*domain.Routine, error)
}

type routineService struct {
	accountRepo  repository.AccountRepository
	routineRepo  repository.RoutineRepository
	progressRepo repository.ProgressRepository
}

// NewRoutineService creates a new instance of routineService.
func NewRoutineService(
	accountRepo repository.AccountRepository,
	routineRepo repository.RoutineRepository,
	progressRepo repository.ProgressRepository,
) RoutineService {
	return &routineService{
		accountRepo:  accountRepo,
		routineRepo:  routineRepo,
		progressRepo: progressRepo,
	}
}

// validateDays walks the tree once, checking structure and numeric ranges.
func validateDays(days []domain.Day) error {
	if len(days) == 0 {
		return apperr.Validation("days", "routine must have at least one day")
	}
	for di, day := range days {
		if len(day.Blocks) == 0 {
			return apperr.Validation(fmt.Sprintf("days[%d].blocks", di), "day must have at least one block")
		}
		for bi, block := range day.Blocks {
			if len(block.Exercises) == 0 {
				return apperr.Validation(fmt.Sprintf("days[%d].blocks[%d].exercises", di, bi), "block must have at least one exercise unit")
			}
			for ei, unit := range block.Exercises {
				field := fmt.Sprintf("days[%d].blocks[%d].exercises[%d]", di, bi, ei)
				if err := validateUnit(field, unit); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateUnit(field string, unit domain.ExerciseUnit) error {
	if unit.Name == "" {
		return apperr.Validation(field+".name", "exercise name is required")
	}
	if unit.Series < 1 {
		return apperr.Validation(field+".series", "series must be at least 1")
	}
	if unit.Reps < 1 {
		return apperr.Validation(field+".reps", "reps must be at least 1")
	}
	if unit.Weight != nil && *unit.Weight < 0 {
		return apperr.Validation(field+".weight", "weight cannot be negative")
	}
	if unit.RestSeconds < 0 {
		return apperr.Validation(field+".restSeconds", "rest seconds cannot be negative")
	}
	return nil
}

// Create builds a routine for one of the coach's students. All unit
// volumes are recomputed from their inputs; any supplied volume is
// discarded.
func (s *routineService) Create(ctx context.Context, coachID, studentID primitive.ObjectID, name string, meta domain.RoutineMeta, days []domain.Day) (*domain.Routine, error) {
	if name == "" {
		return nil, apperr.Validation("name", "routine name is required")
	}
	if !domain.ValidExperience(meta.Experience) {
		return nil, apperr.Validation("meta.experience", "experience must be beginner, intermediate or advanced")
	}
	if meta.Age < 0 {
		return nil, apperr.Validation("meta.age", "age cannot be negative")
	}
	if err := validateDays(days); err != nil {
		return nil, err
	}

	student, err := s.accountRepo.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("studentId", "student not found")
		}
		return nil, err
	}
	if !student.OwnedBy(coachID) {
		return nil, apperr.Validation("studentId", "student is not owned by this coach")
	}

	// A student may only carry one active routine, and only its owning
	// coach can replace it.
	existing, err := s.routineRepo.GetActiveByStudentID(ctx, studentID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.CoachID != coachID {
		return nil, apperr.Conflict("studentId", "student already has an active routine owned by a different coach")
	}

	routine := &domain.Routine{
		StudentID:   studentID,
		CoachID:     coachID,
		Name:        name,
		Meta:        meta,
		CurrentWeek: 1,
		Days:        days,
	}
	routine.RecomputeVolumes()

	routineID, err := s.routineRepo.Create(ctx, routine)
	if err != nil {
		return nil, err
	}
	routine.ID = routineID

	if err := s.accountRepo.SetRoutineForStudent(ctx, studentID, routineID); err != nil {
		return nil, err
	}

	return routine, nil
}

// ReplaceExercise swaps the unit at the given position. The replacement's
// volume is recomputed before it is stored; replacing a unit with an
// identical one succeeds and changes nothing.
func (s *routineService) ReplaceExercise(ctx context.Context, coachID, routineID primitive.ObjectID, loc domain.UnitLocation, unit domain.ExerciseUnit) (*domain.Routine, error) {
	if err := validateUnit("unit", unit); err != nil {
		return nil, err
	}

	routine, err := s.getOwnedRoutine(ctx, coachID, routineID)
	if err != nil {
		return nil, err
	}

	current := routine.UnitAt(loc)
	if current == nil {
		return nil, apperr.NotFound("location", fmt.Sprintf("no exercise unit at day %d, block %d, position %d", loc.Day, loc.Block, loc.Exercise))
	}

	unit.ComputeVolume()
	if current.Equal(unit) {
		// Idempotent: nothing to write.
		*current = unit
		return routine, nil
	}

	if err := s.routineRepo.ReplaceUnit(ctx, routineID, loc, unit); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("location", "exercise unit position no longer exists")
		}
		return nil, err
	}

	*current = unit
	return routine, nil
}

// AdvanceWeek moves the routine's current-week counter forward by exactly
// one, and only when the current week has been recorded in the student's
// ledger. The counter therefore never exceeds 1 + highest recorded week.
func (s *routineService) AdvanceWeek(ctx context.Context, coachID, routineID primitive.ObjectID) (*domain.Routine, error) {
	routine, err := s.getOwnedRoutine(ctx, coachID, routineID)
	if err != nil {
		return nil, err
	}

	_, err = s.progressRepo.GetByStudentAndWeek(ctx, routine.StudentID, routine.CurrentWeek)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Precondition("currentWeek", fmt.Sprintf("week %d has no recorded progress yet", routine.CurrentWeek))
		}
		return nil, err
	}

	if err := s.routineRepo.AdvanceWeek(ctx, routineID, routine.CurrentWeek); err != nil {
		if errors.Is(err, repository.ErrNoStateChange) {
			return nil, apperr.Conflict("currentWeek", "routine week changed concurrently, retry")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("routineId", "routine not found")
		}
		return nil, err
	}

	routine.CurrentWeek++
	return routine, nil
}

// GetCurrent returns the student's active routine, visible to the student
// itself, the owning coach, and admins.
func (s *routineService) GetCurrent(ctx context.Context, callerID primitive.ObjectID, callerRole domain.Role, studentID primitive.ObjectID) (*domain.Routine, error) {
	switch callerRole {
	case domain.RoleAdmin:
		// unrestricted
	case domain.RoleStudent:
		if callerID != studentID {
			return nil, apperr.NotFound("studentId", "student not found")
		}
	case domain.RoleCoach:
		student, err := s.accountRepo.GetByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.NotFound("studentId", "student not found")
			}
			return nil, err
		}
		if !student.OwnedBy(callerID) {
			return nil, apperr.NotFound("studentId", "student not found")
		}
	default:
		return nil, apperr.Validation("role", "unknown caller role")
	}

	routine, err := s.routineRepo.GetActiveByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("studentId", "student has no active routine")
		}
		return nil, err
	}
	return routine, nil
}

func (s *routineService) getOwnedRoutine(ctx context.Context, coachID, routineID primitive.ObjectID) (*domain.Routine, error) {
	routine, err := s.routineRepo.GetByID(ctx, routineID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("routineId", "routine not found")
		}
		return nil, err
	}
	if routine.CoachID != coachID {
		return nil, apperr.NotFound("routineId", "routine not found")
	}
	return routine, nil
}
