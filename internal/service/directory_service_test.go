package service

import (
	"alumbra/coaching-app/internal/apperr"
	"alumbra/coaching-app/internal/domain"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type directoryFixture struct {
	*coachingFixture
	directorySv DirectoryService
	adminID     primitive.ObjectID
}

func newDirectoryFixture(t *testing.T) *directoryFixture {
	t.Helper()
	base := newCoachingFixture(t)
	adminID := base.accounts.mustAdd(domain.Account{Name: "Root", Email: "root@test.local", Role: domain.RoleAdmin})
	return &directoryFixture{
		coachingFixture: base,
		directorySv:     NewDirectoryService(base.accounts, base.routines, base.progress),
		adminID:         adminID,
	}
}

func TestAddStudent(t *testing.T) {
	f := newDirectoryFixture(t)

	student, err := f.directorySv.AddStudent(context.Background(), f.coachID, StudentPayload{
		Name:     "New Student",
		Email:    "New@Test.Local",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, student.Role)
	require.NotNil(t, student.CoachID)
	assert.Equal(t, f.coachID, *student.CoachID)
	assert.Empty(t, student.PasswordHash)

	// Email is stored lowercase and the password is hashed.
	stored, err := f.accounts.GetByEmail(context.Background(), "new@test.local")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-pass")))

	// The coach's student list picked up the new account.
	coach, err := f.accounts.GetByID(context.Background(), f.coachID)
	require.NoError(t, err)
	assert.Contains(t, coach.StudentIDs, student.ID)
}

func TestAddStudentDuplicateEmail(t *testing.T) {
	f := newDirectoryFixture(t)

	_, err := f.directorySv.AddStudent(context.Background(), f.coachID, StudentPayload{
		Name:     "Clone",
		Email:    "student@test.local",
		Password: "s3cret-pass",
	})
	assert.True(t, apperr.IsKind(err, apperr.KindDuplicate))
}

func TestAddStudentRequiresCoach(t *testing.T) {
	f := newDirectoryFixture(t)

	_, err := f.directorySv.AddStudent(context.Background(), f.studentID, StudentPayload{
		Name:     "X",
		Email:    "x@test.local",
		Password: "s3cret-pass",
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestListStudentsStripsHashes(t *testing.T) {
	f := newDirectoryFixture(t)
	_, err := f.directorySv.AddStudent(context.Background(), f.coachID, StudentPayload{
		Name:     "A",
		Email:    "a@test.local",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	// Seed fixture student into the coach's list too.
	require.NoError(t, f.accounts.AddStudentToCoach(context.Background(), f.coachID, f.studentID))

	students, err := f.directorySv.ListStudents(context.Background(), f.coachID)
	require.NoError(t, err)
	require.Len(t, students, 2)
	for _, s := range students {
		assert.Empty(t, s.PasswordHash)
	}
}

func TestReassignStudentRequiresAdmin(t *testing.T) {
	f := newDirectoryFixture(t)
	newCoach := f.accounts.mustAdd(domain.Account{Name: "N", Email: "n@test.local", Role: domain.RoleCoach})

	_, err := f.directorySv.ReassignStudent(context.Background(), f.coachID, f.studentID, newCoach)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestReassignStudentSameCoachIsNoOp(t *testing.T) {
	f := newDirectoryFixture(t)

	student, err := f.directorySv.ReassignStudent(context.Background(), f.adminID, f.studentID, f.coachID)
	require.NoError(t, err)
	require.NotNil(t, student.CoachID)
	assert.Equal(t, f.coachID, *student.CoachID)
}

func TestReassignStudentBlockedByInFlightWeek(t *testing.T) {
	f := newDirectoryFixture(t)
	f.createRoutine(t)
	newCoach := f.accounts.mustAdd(domain.Account{Name: "N", Email: "n@test.local", Role: domain.RoleCoach})

	// Week 1 is current and unrecorded.
	_, err := f.directorySv.ReassignStudent(context.Background(), f.adminID, f.studentID, newCoach)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestReassignStudentCarriesRoutineOver(t *testing.T) {
	f := newDirectoryFixture(t)
	routine := f.createRoutine(t)
	f.recordWeek(t, 1)
	require.NoError(t, f.accounts.AddStudentToCoach(context.Background(), f.coachID, f.studentID))
	newCoach := f.accounts.mustAdd(domain.Account{Name: "N", Email: "n@test.local", Role: domain.RoleCoach})

	student, err := f.directorySv.ReassignStudent(context.Background(), f.adminID, f.studentID, newCoach)
	require.NoError(t, err)
	require.NotNil(t, student.CoachID)
	assert.Equal(t, newCoach, *student.CoachID)

	// Ownership edges moved.
	oldCoach, err := f.accounts.GetByID(context.Background(), f.coachID)
	require.NoError(t, err)
	assert.NotContains(t, oldCoach.StudentIDs, f.studentID)
	updatedCoach, err := f.accounts.GetByID(context.Background(), newCoach)
	require.NoError(t, err)
	assert.Contains(t, updatedCoach.StudentIDs, f.studentID)

	// The active routine follows the student.
	stored, err := f.routines.GetByID(context.Background(), routine.ID)
	require.NoError(t, err)
	assert.Equal(t, newCoach, stored.CoachID)
}

func TestReassignStudentWithoutRoutine(t *testing.T) {
	f := newDirectoryFixture(t)
	newCoach := f.accounts.mustAdd(domain.Account{Name: "N", Email: "n@test.local", Role: domain.RoleCoach})

	student, err := f.directorySv.ReassignStudent(context.Background(), f.adminID, f.studentID, newCoach)
	require.NoError(t, err)
	assert.Equal(t, newCoach, *student.CoachID)
}
