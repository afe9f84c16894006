package service

import (
	"alumbra/coaching-app/internal/apperr"
	"alumbra/coaching-app/internal/domain"
	"alumbra/coaching-app/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// StudentPayload carries the account details a coach supplies when
// provisioning a student.
type StudentPayload struct {
	Name     string
	Email    string
	Password string
}

// DirectoryService maintains the ownership graph: admins issue codes,
// coaches own students, a student belongs to exactly one coach at a time.
//
// Reassignment policy: a student cannot move to a new coach while the
// active routine's current week has no recorded progress (the week is
// "in flight"). Once the week is closed the routine carries over to the
// new coach unchanged.
type DirectoryService interface {
	AddStudent(ctx context.Context, coachID primitive.ObjectID, payload StudentPayload) (*domain.Account, error)
	ListStudents(ctx context.Context, coachID primitive.ObjectID) ([]domain.Account, error)
	ReassignStudent(ctx context.Context, adminID, studentID, newCoachID primitive.ObjectID) (*domain.Account, error)
}

type directoryService struct {
	accountRepo  repository.AccountRepository
	routineRepo  repository.RoutineRepository
	progressRepo repository.ProgressRepository
}

// NewDirectoryService creates a new instance of directoryService.
func NewDirectoryService(
	accountRepo repository.AccountRepository,
	routineRepo repository.RoutineRepository,
	progressRepo repository.ProgressRepository,
) DirectoryService {
	return &directoryService{
		accountRepo:  accountRepo,
		routineRepo:  routineRepo,
		progressRepo: progressRepo,
	}
}

// AddStudent provisions a student account owned by the calling coach.
func (s *directoryService) AddStudent(ctx context.Context, coachID primitive.ObjectID, payload StudentPayload) (*domain.Account, error) {
	if payload.Name == "" || payload.Email == "" || payload.Password == "" {
		return nil, apperr.Validation("payload", "name, email and password are required")
	}

	coach, err := s.accountRepo.GetByID(ctx, coachID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("coachId", "coach not found")
		}
		return nil, err
	}
	if !coach.IsCoach() {
		return nil, apperr.Validation("coachId", "account is not a coach")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	student := &domain.Account{
		Name:         payload.Name,
		Email:        payload.Email,
		PasswordHash: string(hashed),
		Role:         domain.RoleStudent,
		CoachID:      &coachID,
	}
	studentID, err := s.accountRepo.Create(ctx, student)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Duplicate("email", "an account with this email already exists")
		}
		return nil, err
	}
	student.ID = studentID

	if err := s.accountRepo.AddStudentToCoach(ctx, coachID, studentID); err != nil {
		return nil, err
	}

	student.PasswordHash = ""
	return student, nil
}

// ListStudents returns the coach's owned students with hashes stripped.
func (s *directoryService) ListStudents(ctx context.Context, coachID primitive.ObjectID) ([]domain.Account, error) {
	students, err := s.accountRepo.GetStudentsByCoachID(ctx, coachID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("coachId", "coach not found")
		}
		return nil, err
	}
	for i := range students {
		students[i].PasswordHash = ""
	}
	return students, nil
}

// ReassignStudent moves a student to a new coach. Blocked while the
// student's current plan week is unrecorded; on success the active
// routine, if any, carries over with its coach edge rewritten.
func (s *directoryService) ReassignStudent(ctx context.Context, adminID, studentID, newCoachID primitive.ObjectID) (*domain.Account, error) {
	admin, err := s.accountRepo.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("adminId", "admin not found")
		}
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, apperr.Validation("adminId", "only admins may reassign students")
	}

	student, err := s.accountRepo.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("studentId", "student not found")
		}
		return nil, err
	}
	if !student.IsStudent() {
		return nil, apperr.Validation("studentId", "account is not a student")
	}

	newCoach, err := s.accountRepo.GetByID(ctx, newCoachID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("newCoachId", "coach not found")
		}
		return nil, err
	}
	if !newCoach.IsCoach() {
		return nil, apperr.Validation("newCoachId", "account is not a coach")
	}
	if student.CoachID != nil && *student.CoachID == newCoachID {
		return student, nil
	}

	routine, err := s.routineRepo.GetActiveByStudentID(ctx, studentID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if routine != nil {
		_, err := s.progressRepo.GetByStudentAndWeek(ctx, studentID, routine.CurrentWeek)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.Conflict("studentId", "student has an unrecorded week in flight; close it before reassigning")
			}
			return nil, err
		}
	}

	if student.CoachID != nil {
		if err := s.accountRepo.RemoveStudentFromCoach(ctx, *student.CoachID, studentID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	if err := s.accountRepo.AddStudentToCoach(ctx, newCoachID, studentID); err != nil {
		return nil, err
	}
	if err := s.accountRepo.SetCoachForStudent(ctx, studentID, newCoachID); err != nil {
		return nil, err
	}
	if routine != nil {
		if err := s.routineRepo.SetCoach(ctx, routine.ID, newCoachID); err != nil {
			return nil, err
		}
	}

	student.CoachID = &newCoachID
	student.PasswordHash = ""
	return student, nil
}
