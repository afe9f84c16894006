package service

import (
	"alumbra/coaching-app/internal/domain"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T) (AuthService, *fakeAccountRepo) {
	t.Helper()
	accounts := newFakeAccountRepo()
	hashed, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.DefaultCost)
	require.NoError(t, err)
	accounts.mustAdd(domain.Account{
		Name:         "Coach",
		Email:        "coach@test.local",
		PasswordHash: string(hashed),
		Role:         domain.RoleCoach,
	})
	return NewAuthService(accounts, "test-secret", time.Hour), accounts
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthFixture(t)

	token, account, err := svc.Login(context.Background(), "coach@test.local", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, domain.RoleCoach, account.Role)
	assert.Empty(t, account.PasswordHash)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, _, err := svc.Login(context.Background(), "coach@test.local", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, _, err := svc.Login(context.Background(), "nobody@test.local", "s3cret-pass")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestEnsureSeedAdminIsIdempotent(t *testing.T) {
	svc, accounts := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureSeedAdmin(ctx, "Root", "root@test.local", "admin-pass"))
	require.NoError(t, svc.EnsureSeedAdmin(ctx, "Root", "root@test.local", "admin-pass"))

	admin, err := accounts.GetByEmail(ctx, "root@test.local")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	// The seeded admin can log in.
	_, account, err := svc.Login(ctx, "root@test.local", "admin-pass")
	require.NoError(t, err)
	assert.True(t, account.IsAdmin())
}
