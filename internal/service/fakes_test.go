package service

import (
	"alumbra/coaching-app/internal/domain"
	"alumbra/coaching-app/internal/repository"
	"alumbra/coaching-app/internal/storage"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes. All mutations hold the mutex for their full
// duration so the compare-and-swap methods behave like the real filtered
// updates under concurrent callers.

// --- accounts ---

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[primitive.ObjectID]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[primitive.ObjectID]*domain.Account)}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(account.Email)
	for _, a := range r.accounts {
		if a.Email == email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	id := primitive.NewObjectID()
	stored := *account
	stored.ID = id
	stored.Email = email
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.accounts[id] = &stored
	return id, nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == strings.ToLower(email) {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAccountRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *fakeAccountRepo) AddStudentToCoach(_ context.Context, coachID, studentID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	coach, ok := r.accounts[coachID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, id := range coach.StudentIDs {
		if id == studentID {
			return nil
		}
	}
	coach.StudentIDs = append(coach.StudentIDs, studentID)
	return nil
}

func (r *fakeAccountRepo) RemoveStudentFromCoach(_ context.Context, coachID, studentID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	coach, ok := r.accounts[coachID]
	if !ok {
		return repository.ErrNotFound
	}
	kept := coach.StudentIDs[:0]
	for _, id := range coach.StudentIDs {
		if id != studentID {
			kept = append(kept, id)
		}
	}
	coach.StudentIDs = kept
	return nil
}

func (r *fakeAccountRepo) GetStudentsByCoachID(_ context.Context, coachID primitive.ObjectID) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coach, ok := r.accounts[coachID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	var students []domain.Account
	for _, id := range coach.StudentIDs {
		if s, ok := r.accounts[id]; ok {
			students = append(students, *s)
		}
	}
	return students, nil
}

func (r *fakeAccountRepo) SetCoachForStudent(_ context.Context, studentID, coachID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	student, ok := r.accounts[studentID]
	if !ok {
		return repository.ErrNotFound
	}
	student.CoachID = &coachID
	return nil
}

func (r *fakeAccountRepo) SetRoutineForStudent(_ context.Context, studentID, routineID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	student, ok := r.accounts[studentID]
	if !ok {
		return repository.ErrNotFound
	}
	student.RoutineID = &routineID
	return nil
}

// mustAdd seeds an account directly, bypassing uniqueness checks.
func (r *fakeAccountRepo) mustAdd(account domain.Account) primitive.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account.ID.IsZero() {
		account.ID = primitive.NewObjectID()
	}
	account.Email = strings.ToLower(account.Email)
	r.accounts[account.ID] = &account
	return account.ID
}

// --- routines ---

type fakeRoutineRepo struct {
	mu       sync.Mutex
	routines map[primitive.ObjectID]*domain.Routine
}

func newFakeRoutineRepo() *fakeRoutineRepo {
	return &fakeRoutineRepo{routines: make(map[primitive.ObjectID]*domain.Routine)}
}

func copyRoutine(r *domain.Routine) *domain.Routine {
	copied := *r
	copied.Days = make([]domain.Day, len(r.Days))
	for di, day := range r.Days {
		copied.Days[di] = day
		copied.Days[di].Blocks = make([]domain.Block, len(day.Blocks))
		for bi, block := range day.Blocks {
			copied.Days[di].Blocks[bi] = block
			copied.Days[di].Blocks[bi].Exercises = append([]domain.ExerciseUnit(nil), block.Exercises...)
		}
	}
	return &copied
}

func (r *fakeRoutineRepo) Create(_ context.Context, routine *domain.Routine) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	stored := copyRoutine(routine)
	stored.ID = id
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.routines[id] = stored
	return id, nil
}

func (r *fakeRoutineRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Routine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	routine, ok := r.routines[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyRoutine(routine), nil
}

func (r *fakeRoutineRepo) GetActiveByStudentID(_ context.Context, studentID primitive.ObjectID) (*domain.Routine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, routine := range r.routines {
		if routine.StudentID == studentID {
			return copyRoutine(routine), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRoutineRepo) ReplaceUnit(_ context.Context, routineID primitive.ObjectID, loc domain.UnitLocation, unit domain.ExerciseUnit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	routine, ok := r.routines[routineID]
	if !ok {
		return repository.ErrNotFound
	}
	target := routine.UnitAt(loc)
	if target == nil {
		return repository.ErrNotFound
	}
	*target = unit
	routine.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeRoutineRepo) AdvanceWeek(_ context.Context, routineID primitive.ObjectID, fromWeek int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	routine, ok := r.routines[routineID]
	if !ok {
		return repository.ErrNotFound
	}
	if routine.CurrentWeek != fromWeek {
		return repository.ErrNoStateChange
	}
	routine.CurrentWeek++
	routine.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeRoutineRepo) SetCoach(_ context.Context, routineID, coachID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	routine, ok := r.routines[routineID]
	if !ok {
		return repository.ErrNotFound
	}
	routine.CoachID = coachID
	return nil
}

// --- week progress ---

type progressKey struct {
	student primitive.ObjectID
	week    int
}

type fakeProgressRepo struct {
	mu    sync.Mutex
	weeks map[progressKey]*domain.WeekProgress
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{weeks: make(map[progressKey]*domain.WeekProgress)}
}

func copyWeek(w *domain.WeekProgress) *domain.WeekProgress {
	copied := *w
	copied.Days = make([]domain.DayProgress, len(w.Days))
	for i, d := range w.Days {
		copied.Days[i] = d
		copied.Days[i].Exercises = append([]domain.ExerciseProgress(nil), d.Exercises...)
	}
	return &copied
}

func (r *fakeProgressRepo) Create(_ context.Context, progress *domain.WeekProgress) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := progressKey{progress.StudentID, progress.Week}
	if _, exists := r.weeks[key]; exists {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	id := primitive.NewObjectID()
	stored := copyWeek(progress)
	stored.ID = id
	stored.RecordedAt = time.Now().UTC()
	stored.UpdatedAt = stored.RecordedAt
	r.weeks[key] = stored
	return id, nil
}

func (r *fakeProgressRepo) GetByStudentAndWeek(_ context.Context, studentID primitive.ObjectID, week int) (*domain.WeekProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.weeks[progressKey{studentID, week}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyWeek(stored), nil
}

func (r *fakeProgressRepo) Replace(_ context.Context, progress *domain.WeekProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := progressKey{progress.StudentID, progress.Week}
	stored, ok := r.weeks[key]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Revision != progress.Revision-1 {
		return repository.ErrNoStateChange
	}
	replacement := copyWeek(progress)
	replacement.ID = stored.ID
	replacement.RecordedAt = stored.RecordedAt
	replacement.UpdatedAt = time.Now().UTC()
	r.weeks[key] = replacement
	return nil
}

func (r *fakeProgressRepo) SetObservation(_ context.Context, studentID primitive.ObjectID, week, dayIndex int, observation string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.weeks[progressKey{studentID, week}]
	if !ok {
		return repository.ErrNotFound
	}
	if dayIndex < 0 || dayIndex >= len(stored.Days) {
		return repository.ErrNotFound
	}
	stored.Days[dayIndex].Observation = observation
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeProgressRepo) ListByStudent(_ context.Context, studentID primitive.ObjectID, fromWeek, toWeek int) ([]domain.WeekProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WeekProgress
	highest := 0
	for key := range r.weeks {
		if key.student == studentID && key.week > highest {
			highest = key.week
		}
	}
	for week := 1; week <= highest; week++ {
		if fromWeek > 0 && week < fromWeek {
			continue
		}
		if toWeek > 0 && week > toWeek {
			continue
		}
		if stored, ok := r.weeks[progressKey{studentID, week}]; ok {
			out = append(out, *copyWeek(stored))
		}
	}
	return out, nil
}

func (r *fakeProgressRepo) HighestWeek(_ context.Context, studentID primitive.ObjectID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	highest := 0
	for key := range r.weeks {
		if key.student == studentID && key.week > highest {
			highest = key.week
		}
	}
	return highest, nil
}

// --- invitation codes ---

type fakeInvitationRepo struct {
	mu    sync.Mutex
	codes map[string]*domain.InvitationCode // keyed by codeId
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{codes: make(map[string]*domain.InvitationCode)}
}

func (r *fakeInvitationRepo) Create(_ context.Context, code *domain.InvitationCode) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.Code == code.Code || c.CodeID == code.CodeID {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	id := primitive.NewObjectID()
	stored := *code
	stored.ID = id
	r.codes[code.CodeID] = &stored
	return id, nil
}

func (r *fakeInvitationRepo) GetByCode(_ context.Context, code string) (*domain.InvitationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.Code == code {
			copied := *c
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeInvitationRepo) GetByCodeID(_ context.Context, codeID string) (*domain.InvitationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.codes[codeID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeInvitationRepo) ListByIssuer(_ context.Context, adminID primitive.ObjectID) ([]domain.InvitationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.InvitationCode
	for _, c := range r.codes {
		if c.IssuedBy == adminID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeInvitationRepo) Consume(_ context.Context, codeID string, usedBy primitive.ObjectID, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.codes[codeID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != domain.InvitationValid {
		return repository.ErrNoStateChange
	}
	stored.Status = domain.InvitationUsed
	stored.UsedAt = &usedAt
	stored.UsedBy = &usedBy
	return nil
}

func (r *fakeInvitationRepo) Expire(_ context.Context, codeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.codes[codeID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != domain.InvitationValid {
		return repository.ErrNoStateChange
	}
	stored.Status = domain.InvitationExpired
	return nil
}

func (r *fakeInvitationRepo) ExpireOverdue(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var flipped int64
	for _, c := range r.codes {
		if c.Status == domain.InvitationValid && cutoff.After(c.ExpiresAt) {
			c.Status = domain.InvitationExpired
			flipped++
		}
	}
	return flipped, nil
}

// --- exercise templates ---

type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[primitive.ObjectID]*domain.ExerciseTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[primitive.ObjectID]*domain.ExerciseTemplate)}
}

func (r *fakeTemplateRepo) Create(_ context.Context, template *domain.ExerciseTemplate) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	stored := *template
	stored.ID = id
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.templates[id] = &stored
	return id, nil
}

func (r *fakeTemplateRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ExerciseTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeTemplateRepo) GetByCoachID(_ context.Context, coachID primitive.ObjectID) ([]domain.ExerciseTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ExerciseTemplate
	for _, t := range r.templates {
		if t.CoachID == coachID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTemplateRepo) Update(_ context.Context, template *domain.ExerciseTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.templates[template.ID]
	if !ok || stored.CoachID != template.CoachID {
		return repository.ErrNotFound
	}
	updated := *template
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	r.templates[template.ID] = &updated
	return nil
}

func (r *fakeTemplateRepo) Delete(_ context.Context, id, coachID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.templates[id]
	if !ok || stored.CoachID != coachID {
		return repository.ErrNotFound
	}
	delete(r.templates, id)
	return nil
}

// --- media assets ---

type fakeMediaRepo struct {
	mu     sync.Mutex
	assets map[primitive.ObjectID]*domain.MediaAsset
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{assets: make(map[primitive.ObjectID]*domain.MediaAsset)}
}

func (r *fakeMediaRepo) Create(_ context.Context, asset *domain.MediaAsset) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	stored := *asset
	stored.ID = id
	stored.UploadedAt = time.Now().UTC()
	r.assets[id] = &stored
	return id, nil
}

func (r *fakeMediaRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.MediaAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.assets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeMediaRepo) GetByTemplateID(_ context.Context, templateID primitive.ObjectID) (*domain.MediaAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assets {
		if a.TemplateID == templateID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeMediaRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.assets, id)
	return nil
}

// --- object storage ---

type fakeFileStorage struct {
	mu      sync.Mutex
	deleted []string
}

var _ storage.FileStorage = (*fakeFileStorage)(nil)

func (s *fakeFileStorage) GeneratePresignedUploadURL(_ context.Context, objectKey, contentType string, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.test/upload/%s?ct=%s", objectKey, contentType), nil
}

func (s *fakeFileStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.test/download/%s", objectKey), nil
}

func (s *fakeFileStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, objectKey)
	return nil
}
