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

// ProgressService owns the per-student week progress ledger.
//
// The ledger is append-only: re-recording an existing week always fails
// with a duplicate error. Corrections go through AmendWeek, which replaces
// the stored week wholesale and bumps its revision; the free-text
// observation alone may additionally be edited through UpdateObservation.
type ProgressService interface {
	RecordWeek(ctx context.Context, studentID primitive.ObjectID, week int, days []domain.DayProgress) (*domain.WeekProgress, error)
	AmendWeek(ctx context.Context, studentID primitive.ObjectID, week int, days []domain.DayProgress) (*domain.WeekProgress, error)
	UpdateObservation(ctx context.Context, studentID primitive.ObjectID, week, dayIndex int, observation string) (*domain.WeekProgress, error)
	GetHistory(ctx context.Context, studentID primitive.ObjectID, fromWeek, toWeek int) ([]domain.WeekProgress, error)
	// AggregateVolume sums actual volumes over an inclusive week range;
	// zero bounds select the whole ledger.
	AggregateVolume(ctx context.Context, studentID primitive.ObjectID, fromWeek, toWeek int) (float64, error)
	// AuthorizeRead reports whether the caller may read this student's
	// ledger: the student itself, the owning coach, or an admin.
	AuthorizeRead(ctx context.Context, callerID primitive.ObjectID, callerRole domain.Role, studentID primitive.ObjectID) error
}

type progressService struct {
	accountRepo  repository.AccountRepository
	routineRepo  repository.RoutineRepository
	progressRepo repository.ProgressRepository
}

// NewProgressService creates a new instance of progressService.
func NewProgressService(
	accountRepo repository.AccountRepository,
	routineRepo repository.RoutineRepository,
	progressRepo repository.ProgressRepository,
) ProgressService {
	return &progressService{
		accountRepo:  accountRepo,
		routineRepo:  routineRepo,
		progressRepo: progressRepo,
	}
}

// validateAgainstRoutine checks every exercise progress entry against the
// routine effective at recording time and computes its derived actual
// volume. Entries keep the exercise name as historical text.
func validateAgainstRoutine(routine *domain.Routine, week int, days []domain.DayProgress) error {
	if week < 1 {
		return apperr.Validation("week", "week must be at least 1")
	}
	if week > routine.CurrentWeek {
		return apperr.Validation("week", fmt.Sprintf("week %d is ahead of the routine's current week %d", week, routine.CurrentWeek))
	}
	if len(days) == 0 {
		return apperr.Validation("days", "week progress must have at least one day")
	}
	for di := range days {
		for ei := range days[di].Exercises {
			entry := &days[di].Exercises[ei]
			field := fmt.Sprintf("days[%d].exercises[%d]", di, ei)

			planned := routine.UnitAt(domain.UnitLocation{
				Day:      entry.DayIndex,
				Block:    entry.BlockIndex,
				Exercise: entry.ExerciseIndex,
			})
			if planned == nil {
				return apperr.Validation(field, "referenced exercise unit does not exist in the routine")
			}
			if planned.Name != entry.ExerciseName {
				return apperr.Validation(field+".exerciseName", fmt.Sprintf("expected %q at that position", planned.Name))
			}
			if entry.ActualWeight < 0 {
				return apperr.Validation(field+".actualWeight", "actual weight cannot be negative")
			}
			if entry.ActualReps < 1 {
				return apperr.Validation(field+".actualReps", "actual reps must be at least 1")
			}
			if entry.ActualSeries != nil && *entry.ActualSeries < 1 {
				return apperr.Validation(field+".actualSeries", "actual series must be at least 1")
			}

			entry.ComputeActualVolume(planned.Series)
		}
	}
	return nil
}

// RecordWeek appends one week to the student's ledger. The whole
// day/exercise tree is stored in a single write: either the full week
// becomes visible or nothing does.
func (s *progressService) RecordWeek(ctx context.Context, studentID primitive.ObjectID, week int, days []domain.DayProgress) (*domain.WeekProgress, error) {
	routine, err := s.activeRoutine(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := validateAgainstRoutine(routine, week, days); err != nil {
		return nil, err
	}

	progress := &domain.WeekProgress{
		StudentID: studentID,
		Week:      week,
		Revision:  1,
		Days:      days,
	}

	if _, err := s.progressRepo.Create(ctx, progress); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Duplicate("week", fmt.Sprintf("week %d is already recorded", week))
		}
		return nil, err
	}
	return progress, nil
}

// AmendWeek replaces an already recorded week with a corrected tree and
// bumps its revision. Validation is identical to RecordWeek.
func (s *progressService) AmendWeek(ctx context.Context, studentID primitive.ObjectID, week int, days []domain.DayProgress) (*domain.WeekProgress, error) {
	routine, err := s.activeRoutine(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := validateAgainstRoutine(routine, week, days); err != nil {
		return nil, err
	}

	existing, err := s.progressRepo.GetByStudentAndWeek(ctx, studentID, week)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("week", fmt.Sprintf("week %d is not recorded", week))
		}
		return nil, err
	}

	existing.Days = days
	existing.Revision++
	if err := s.progressRepo.Replace(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNoStateChange) {
			return nil, apperr.Conflict("week", "week was amended concurrently, retry")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("week", fmt.Sprintf("week %d is not recorded", week))
		}
		return nil, err
	}
	return existing, nil
}

// UpdateObservation edits the free-text observation of one recorded day.
// The rest of the record stays immutable.
func (s *progressService) UpdateObservation(ctx context.Context, studentID primitive.ObjectID, week, dayIndex int, observation string) (*domain.WeekProgress, error) {
	if dayIndex < 0 {
		return nil, apperr.Validation("dayIndex", "day index cannot be negative")
	}
	err := s.progressRepo.SetObservation(ctx, studentID, week, dayIndex, observation)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("week", "recorded day not found")
		}
		return nil, err
	}
	return s.progressRepo.GetByStudentAndWeek(ctx, studentID, week)
}

// GetHistory returns the ledger ordered by week ascending, optionally
// narrowed to an inclusive range. An existing student with no recorded
// weeks gets an empty history, not an error.
func (s *progressService) GetHistory(ctx context.Context, studentID primitive.ObjectID, fromWeek, toWeek int) ([]domain.WeekProgress, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if fromWeek < 0 || toWeek < 0 {
		return nil, apperr.Validation("range", "week bounds cannot be negative")
	}
	if fromWeek > 0 && toWeek > 0 && fromWeek > toWeek {
		return nil, apperr.Validation("range", "fromWeek cannot exceed toWeek")
	}
	weeks, err := s.progressRepo.ListByStudent(ctx, studentID, fromWeek, toWeek)
	if err != nil {
		return nil, err
	}
	if weeks == nil {
		weeks = []domain.WeekProgress{}
	}
	return weeks, nil
}

// AggregateVolume sums the actual volumes across the inclusive week range.
// Omitting both bounds sums the whole ledger; a range with no recorded
// weeks sums to zero.
func (s *progressService) AggregateVolume(ctx context.Context, studentID primitive.ObjectID, fromWeek, toWeek int) (float64, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return 0, err
	}
	if fromWeek == 0 && toWeek == 0 {
		highest, err := s.progressRepo.HighestWeek(ctx, studentID)
		if err != nil {
			return 0, err
		}
		if highest == 0 {
			return 0, nil
		}
		fromWeek, toWeek = 1, highest
	}
	if fromWeek < 1 || toWeek < 1 {
		return 0, apperr.Validation("range", "week bounds must be at least 1")
	}
	if fromWeek > toWeek {
		return 0, apperr.Validation("range", "fromWeek cannot exceed toWeek")
	}

	weeks, err := s.progressRepo.ListByStudent(ctx, studentID, fromWeek, toWeek)
	if err != nil {
		return 0, err
	}
	var total float64
	for i := range weeks {
		total += weeks[i].TotalVolume()
	}
	return total, nil
}

// AuthorizeRead gates ledger reads. Unowned students look like missing
// ones so the response leaks nothing about other coaches' rosters.
func (s *progressService) AuthorizeRead(ctx context.Context, callerID primitive.ObjectID, callerRole domain.Role, studentID primitive.ObjectID) error {
	switch callerRole {
	case domain.RoleAdmin:
		return nil
	case domain.RoleStudent:
		if callerID != studentID {
			return apperr.NotFound("studentId", "student not found")
		}
		return nil
	case domain.RoleCoach:
		student, err := s.accountRepo.GetByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("studentId", "student not found")
			}
			return err
		}
		if !student.OwnedBy(callerID) {
			return apperr.NotFound("studentId", "student not found")
		}
		return nil
	default:
		return apperr.Validation("role", "unknown caller role")
	}
}

func (s *progressService) activeRoutine(ctx context.Context, studentID primitive.ObjectID) (*domain.Routine, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}
	routine, err := s.routineRepo.GetActiveByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Precondition("routine", "student has no active routine")
		}
		return nil, err
	}
	return routine, nil
}

func (s *progressService) ensureStudent(ctx context.Context, studentID primitive.ObjectID) error {
	account, err := s.accountRepo.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("studentId", "student not found")
		}
		return err
	}
	if !account.IsStudent() {
		return apperr.NotFound("studentId", "student not found")
	}
	return nil
}
