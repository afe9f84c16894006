package service

import (
	"alumbra/coaching-app/internal/apperr"
	"alumbra/coaching-app/internal/domain"
	"alumbra/coaching-app/internal/repository"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// redeemAttempts bounds the internal CAS retry loop before a conflict is
// surfaced to the caller.
const redeemAttempts = 3

// CoachPayload carries the account details supplied when a coach redeems
// an invitation code.
type CoachPayload struct {
	Name     string
	Email    string
	Password string
}

// InvitationService owns the invitation code lifecycle: codes start valid,
// move monotonically to used or expired, and never come back. Expiry is
// lazy: an overdue code flips to expired when a redemption observes it,
// so no background job is required for correctness.
type InvitationService interface {
	Issue(ctx context.Context, adminID primitive.ObjectID, validity time.Duration) (*domain.InvitationCode, error)
	Redeem(ctx context.Context, code string, payload CoachPayload) (*domain.InvitationCode, *domain.Account, error)
	IsValid(ctx context.Context, code string) (bool, error)
	Revoke(ctx context.Context, codeID string, adminID primitive.ObjectID) (*domain.InvitationCode, error)
	ListIssued(ctx context.Context, adminID primitive.ObjectID) ([]domain.InvitationCode, error)
	Sweep(ctx context.Context) (int64, error)
}

type invitationService struct {
	invitationRepo  repository.InvitationRepository
	accountRepo     repository.AccountRepository
	defaultValidity time.Duration
	now             func() time.Time // injectable clock for tests
}

// NewInvitationService creates a new instance of invitationService.
func NewInvitationService(
	invitationRepo repository.InvitationRepository,
	accountRepo repository.AccountRepository,
	defaultValidity time.Duration,
) InvitationService {
	if defaultValidity <= 0 {
		defaultValidity = 7 * 24 * time.Hour
	}
	return &invitationService{
		invitationRepo:  invitationRepo,
		accountRepo:     accountRepo,
		defaultValidity: defaultValidity,
		now:             time.Now,
	}
}

// generateCode produces an opaque random code string, 160 bits of
// entropy rendered as unpadded base32.
func generateCode() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)), nil
}

// Issue creates a fresh code in the valid state. A non-positive validity
// falls back to the configured default window.
func (s *invitationService) Issue(ctx context.Context, adminID primitive.ObjectID, validity time.Duration) (*domain.InvitationCode, error) {
	admin, err := s.accountRepo.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("adminId", "admin not found")
		}
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, apperr.Validation("adminId", "only admins may issue invitation codes")
	}
	if validity <= 0 {
		validity = s.defaultValidity
	}

	codeString, err := generateCode()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	code := &domain.InvitationCode{
		CodeID:    uuid.NewString(),
		Code:      codeString,
		IssuedBy:  adminID,
		CreatedAt: now,
		ExpiresAt: now.Add(validity),
		Status:    domain.InvitationValid,
	}

	if _, err := s.invitationRepo.Create(ctx, code); err != nil {
		return nil, err
	}
	return code, nil
}

// Redeem consumes a code and provisions the coach account it authorizes.
// Exactly one concurrent redeemer wins: the winner is decided by a CAS on
// the code's status, and the losers observe the terminal state. The CAS
// retry loop is internal and bounded; exhaustion surfaces as a conflict.
func (s *invitationService) Redeem(ctx context.Context, code string, payload CoachPayload) (*domain.InvitationCode, *domain.Account, error) {
	if payload.Name == "" || payload.Email == "" || payload.Password == "" {
		return nil, nil, apperr.Validation("payload", "name, email and password are required")
	}

	for attempt := 0; attempt < redeemAttempts; attempt++ {
		invitation, err := s.invitationRepo.GetByCode(ctx, code)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil, apperr.NotFound("code", "invitation code not found")
			}
			return nil, nil, err
		}
		// The lookup is keyed, but compare again in constant time so the
		// comparison itself leaks nothing about the stored value.
		if subtle.ConstantTimeCompare([]byte(invitation.Code), []byte(code)) != 1 {
			return nil, nil, apperr.NotFound("code", "invitation code not found")
		}

		now := s.now().UTC()
		switch {
		case invitation.Status == domain.InvitationUsed:
			return nil, nil, apperr.AlreadyUsed("invitation code has already been used")
		case invitation.Status == domain.InvitationExpired:
			return nil, nil, apperr.Expired("invitation code has expired")
		case invitation.OverdueAt(now):
			// Lazy expiry: flip on observation, then report. Losing the
			// CAS means someone else moved it; re-observe.
			if err := s.invitationRepo.Expire(ctx, invitation.CodeID); err != nil {
				if errors.Is(err, repository.ErrNoStateChange) {
					continue
				}
				return nil, nil, err
			}
			return nil, nil, apperr.Expired("invitation code has expired")
		}

		// Check-expiry-then-consume must be one atomic step: the CAS
		// filter only matches a still-valid code.
		coach, err := s.createCoach(ctx, payload)
		if err != nil {
			return nil, nil, err
		}

		if err := s.invitationRepo.Consume(ctx, invitation.CodeID, coach.ID, now); err != nil {
			// Lost the race; drop the account we provisioned and decide
			// from the code's final state.
			_ = s.accountRepo.Delete(ctx, coach.ID)
			if errors.Is(err, repository.ErrNoStateChange) {
				continue
			}
			return nil, nil, err
		}

		invitation.Status = domain.InvitationUsed
		invitation.UsedAt = &now
		invitation.UsedBy = &coach.ID
		coach.PasswordHash = ""
		return invitation, coach, nil
	}

	return nil, nil, apperr.Conflict("code", "invitation redemption contended, retry")
}

func (s *invitationService) createCoach(ctx context.Context, payload CoachPayload) (*domain.Account, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	coach := &domain.Account{
		Name:         payload.Name,
		Email:        payload.Email,
		PasswordHash: string(hashed),
		Role:         domain.RoleCoach,
	}
	coachID, err := s.accountRepo.Create(ctx, coach)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Duplicate("email", "an account with this email already exists")
		}
		return nil, err
	}
	coach.ID = coachID
	return coach, nil
}

// IsValid is a pure predicate: it never mutates the stored state, even
// when it observes an overdue code.
func (s *invitationService) IsValid(ctx context.Context, code string) (bool, error) {
	invitation, err := s.invitationRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return invitation.IsValid(s.now().UTC()), nil
}

// Revoke forces a valid code directly to expired. Only admins may revoke,
// and a used code cannot be revoked. Revoking an already expired code is
// an idempotent success.
func (s *invitationService) Revoke(ctx context.Context, codeID string, adminID primitive.ObjectID) (*domain.InvitationCode, error) {
	admin, err := s.accountRepo.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("adminId", "admin not found")
		}
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, apperr.Validation("adminId", "only admins may revoke invitation codes")
	}

	invitation, err := s.invitationRepo.GetByCodeID(ctx, codeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("codeId", "invitation code not found")
		}
		return nil, err
	}
	switch invitation.Status {
	case domain.InvitationUsed:
		return nil, apperr.Conflict("codeId", "invitation code has already been used")
	case domain.InvitationExpired:
		return invitation, nil
	}

	if err := s.invitationRepo.Expire(ctx, codeID); err != nil {
		if errors.Is(err, repository.ErrNoStateChange) {
			// Moved underneath us; report the terminal state we find.
			final, getErr := s.invitationRepo.GetByCodeID(ctx, codeID)
			if getErr != nil {
				return nil, getErr
			}
			if final.Status == domain.InvitationUsed {
				return nil, apperr.Conflict("codeId", "invitation code has already been used")
			}
			return final, nil
		}
		return nil, err
	}

	invitation.Status = domain.InvitationExpired
	return invitation, nil
}

// ListIssued returns every code the admin has issued, for reporting.
func (s *invitationService) ListIssued(ctx context.Context, adminID primitive.ObjectID) ([]domain.InvitationCode, error) {
	codes, err := s.invitationRepo.ListByIssuer(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []domain.InvitationCode{}
	}
	return codes, nil
}

// Sweep expires every overdue valid code and reports how many flipped.
// Advisory only; correctness does not depend on it running.
func (s *invitationService) Sweep(ctx context.Context) (int64, error) {
	return s.invitationRepo.ExpireOverdue(ctx, s.now().UTC())
}
