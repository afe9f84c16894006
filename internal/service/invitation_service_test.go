package service

import (
	"alumbra/coaching-app/internal/apperr"
	"alumbra/coaching-app/internal/domain"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type invitationFixture struct {
	svc         *invitationService
	invitations *fakeInvitationRepo
	accounts    *fakeAccountRepo
	adminID     primitive.ObjectID
	clock       time.Time
}

func newInvitationFixture(t *testing.T) *invitationFixture {
	t.Helper()
	invitations := newFakeInvitationRepo()
	accounts := newFakeAccountRepo()
	adminID := accounts.mustAdd(domain.Account{Name: "Root", Email: "root@test.local", Role: domain.RoleAdmin})

	f := &invitationFixture{
		svc:         NewInvitationService(invitations, accounts, 7*24*time.Hour).(*invitationService),
		invitations: invitations,
		accounts:    accounts,
		adminID:     adminID,
		clock:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *invitationFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func coachPayload(email string) CoachPayload {
	return CoachPayload{Name: "Coach", Email: email, Password: "s3cret-pass"}
}

func TestIssueUsesDefaultValidity(t *testing.T) {
	f := newInvitationFixture(t)

	code, err := f.svc.Issue(context.Background(), f.adminID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationValid, code.Status)
	assert.Equal(t, f.clock.Add(7*24*time.Hour), code.ExpiresAt)
	assert.NotEmpty(t, code.Code)
	assert.NotEmpty(t, code.CodeID)
}

func TestIssueRejectsNonAdmin(t *testing.T) {
	f := newInvitationFixture(t)
	coachID := f.accounts.mustAdd(domain.Account{Name: "C", Email: "c@test.local", Role: domain.RoleCoach})

	_, err := f.svc.Issue(context.Background(), coachID, time.Hour)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestRedeemLifecycle(t *testing.T) {
	f := newInvitationFixture(t)
	code, err := f.svc.Issue(context.Background(), f.adminID, 7*24*time.Hour)
	require.NoError(t, err)

	// One day later the code redeems and provisions a coach.
	f.advance(24 * time.Hour)
	used, coach, err := f.svc.Redeem(context.Background(), code.Code, coachPayload("anna@test.local"))
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationUsed, used.Status)
	require.NotNil(t, used.UsedAt)
	assert.Equal(t, f.clock, *used.UsedAt)
	require.NotNil(t, coach)
	assert.Equal(t, domain.RoleCoach, coach.Role)
	assert.Empty(t, coach.PasswordHash)

	stored, err := f.accounts.GetByID(context.Background(), coach.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCoach())

	// A second redemption one day after that reports already used.
	f.advance(24 * time.Hour)
	_, _, err = f.svc.Redeem(context.Background(), code.Code, coachPayload("bram@test.local"))
	assert.True(t, apperr.IsKind(err, apperr.KindAlreadyUsed))

	// The loser's account was never created.
	_, err = f.accounts.GetByEmail(context.Background(), "bram@test.local")
	assert.Error(t, err)
}

func TestRedeemExpiredCode(t *testing.T) {
	f := newInvitationFixture(t)
	code, err := f.svc.Issue(context.Background(), f.adminID, 7*24*time.Hour)
	require.NoError(t, err)

	f.advance(7*24*time.Hour + time.Minute)
	_, _, err = f.svc.Redeem(context.Background(), code.Code, coachPayload("late@test.local"))
	assert.True(t, apperr.IsKind(err, apperr.KindExpired))

	// Lazy expiry flipped the stored status.
	stored, getErr := f.invitations.GetByCodeID(context.Background(), code.CodeID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.InvitationExpired, stored.Status)

	// No account was provisioned.
	_, err = f.accounts.GetByEmail(context.Background(), "late@test.local")
	assert.Error(t, err)
}

func TestRedeemUnknownCode(t *testing.T) {
	f := newInvitationFixture(t)
	_, _, err := f.svc.Redeem(context.Background(), "NO-SUCH-CODE", coachPayload("x@test.local"))
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRedeemDuplicateEmail(t *testing.T) {
	f := newInvitationFixture(t)
	f.accounts.mustAdd(domain.Account{Name: "Taken", Email: "taken@test.local", Role: domain.RoleCoach})
	code, err := f.svc.Issue(context.Background(), f.adminID, time.Hour)
	require.NoError(t, err)

	_, _, err = f.svc.Redeem(context.Background(), code.Code, coachPayload("taken@test.local"))
	assert.True(t, apperr.IsKind(err, apperr.KindDuplicate))

	// The code survives a failed provisioning attempt.
	stored, getErr := f.invitations.GetByCodeID(context.Background(), code.CodeID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.InvitationValid, stored.Status)
}

func TestRedeemConcurrentExactlyOneWinner(t *testing.T) {
	for _, n := range []int{2, 5, 20} {
		t.Run(fmt.Sprintf("redeemers=%d", n), func(t *testing.T) {
			f := newInvitationFixture(t)
			code, err := f.svc.Issue(context.Background(), f.adminID, time.Hour)
			require.NoError(t, err)

			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					email := fmt.Sprintf("coach%d@test.local", i)
					_, _, errs[i] = f.svc.Redeem(context.Background(), code.Code, coachPayload(email))
				}(i)
			}
			wg.Wait()

			winners := 0
			for _, err := range errs {
				if err == nil {
					winners++
				} else {
					assert.True(t, apperr.IsKind(err, apperr.KindAlreadyUsed) ||
						apperr.IsKind(err, apperr.KindConflict), "unexpected error: %v", err)
				}
			}
			assert.Equal(t, 1, winners)

			stored, getErr := f.invitations.GetByCodeID(context.Background(), code.CodeID)
			require.NoError(t, getErr)
			assert.Equal(t, domain.InvitationUsed, stored.Status)

			// Exactly one coach account survives; losers were compensated.
			coaches := 0
			for i := 0; i < n; i++ {
				if _, err := f.accounts.GetByEmail(context.Background(), fmt.Sprintf("coach%d@test.local", i)); err == nil {
					coaches++
				}
			}
			assert.Equal(t, 1, coaches)
		})
	}
}

func TestIsValidIsPure(t *testing.T) {
	f := newInvitationFixture(t)
	code, err := f.svc.Issue(context.Background(), f.adminID, time.Hour)
	require.NoError(t, err)

	ok, err := f.svc.IsValid(context.Background(), code.Code)
	require.NoError(t, err)
	assert.True(t, ok)

	f.advance(2 * time.Hour)
	ok, err = f.svc.IsValid(context.Background(), code.Code)
	require.NoError(t, err)
	assert.False(t, ok)

	// Observation alone does not mutate stored state.
	stored, getErr := f.invitations.GetByCodeID(context.Background(), code.CodeID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.InvitationValid, stored.Status)

	ok, err = f.svc.IsValid(context.Background(), "NO-SUCH-CODE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRevoke(t *testing.T) {
	f := newInvitationFixture(t)
	code, err := f.svc.Issue(context.Background(), f.adminID, time.Hour)
	require.NoError(t, err)

	revoked, err := f.svc.Revoke(context.Background(), code.CodeID, f.adminID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationExpired, revoked.Status)

	// Revoking again is an idempotent success.
	again, err := f.svc.Revoke(context.Background(), code.CodeID, f.adminID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationExpired, again.Status)

	_, _, err = f.svc.Redeem(context.Background(), code.Code, coachPayload("r@test.local"))
	assert.True(t, apperr.IsKind(err, apperr.KindExpired))
}

func TestRevokeUsedCode(t *testing.T) {
	f := newInvitationFixture(t)
	code, err := f.svc.Issue(context.Background(), f.adminID, time.Hour)
	require.NoError(t, err)
	_, _, err = f.svc.Redeem(context.Background(), code.Code, coachPayload("w@test.local"))
	require.NoError(t, err)

	_, err = f.svc.Revoke(context.Background(), code.CodeID, f.adminID)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestSweepExpiresOverdueCodes(t *testing.T) {
	f := newInvitationFixture(t)
	short, err := f.svc.Issue(context.Background(), f.adminID, time.Hour)
	require.NoError(t, err)
	long, err := f.svc.Issue(context.Background(), f.adminID, 48*time.Hour)
	require.NoError(t, err)
	used, err := f.svc.Issue(context.Background(), f.adminID, time.Hour)
	require.NoError(t, err)
	_, _, err = f.svc.Redeem(context.Background(), used.Code, coachPayload("sw@test.local"))
	require.NoError(t, err)

	f.advance(2 * time.Hour)
	flipped, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), flipped)

	stored, _ := f.invitations.GetByCodeID(context.Background(), short.CodeID)
	assert.Equal(t, domain.InvitationExpired, stored.Status)
	stored, _ = f.invitations.GetByCodeID(context.Background(), long.CodeID)
	assert.Equal(t, domain.InvitationValid, stored.Status)
	stored, _ = f.invitations.GetByCodeID(context.Background(), used.CodeID)
	assert.Equal(t, domain.InvitationUsed, stored.Status)
}

func TestListIssued(t *testing.T) {
	f := newInvitationFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.svc.Issue(context.Background(), f.adminID, time.Hour)
		require.NoError(t, err)
	}

	codes, err := f.svc.ListIssued(context.Background(), f.adminID)
	require.NoError(t, err)
	assert.Len(t, codes, 3)

	other := f.accounts.mustAdd(domain.Account{Name: "Other", Email: "o@test.local", Role: domain.RoleAdmin})
	codes, err = f.svc.ListIssued(context.Background(), other)
	require.NoError(t, err)
	assert.Empty(t, codes)
}
