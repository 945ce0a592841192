package models

import (
	"net/mail"
	"strings"
	"time"

	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
)

// Account is a platform identity.
//
// Invariants:
//   - Role is one of owner, vet, shelter, admin and never changes
//   - An inactive account authenticates for nothing
//   - A vet without VetVerified is denied every vet-only operation
//   - Accounts are soft-deactivated, never deleted
//   - Verification flags are only flipped by admin action or email confirmation
type Account struct {
	ID              domain.AccountID `json:"id"`
	Email           string           `json:"email"`
	PasswordHash    string           `json:"-"`
	Role            domain.Role      `json:"role"`
	Active          bool             `json:"active"`
	Verified        bool             `json:"verified"`
	VetVerified     bool             `json:"vet_verified"`
	EmailVerified   bool             `json:"email_verified"`
	EmailVerifiedAt *time.Time       `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewAccount validates and builds an active, unverified account.
func NewAccount(id domain.AccountID, email, passwordHash string, role domain.Role, now time.Time) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email is not a valid address")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "role must be owner, vet, shelter or admin")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}
	return &Account{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Caller snapshots the account for authorization.
func (a *Account) Caller() domain.Caller {
	return domain.Caller{
		ID:          a.ID,
		Role:        a.Role,
		Active:      a.Active,
		Verified:    a.Verified,
		VetVerified: a.VetVerified,
	}
}

// IsActiveVerifiedAdmin reports whether the account receives admin fan-out.
func (a *Account) IsActiveVerifiedAdmin() bool {
	return a.Active && a.Role == domain.RoleAdmin && a.Verified
}

func (a *Account) CanDeactivate() error {
	if !a.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "account is already inactive")
	}
	return nil
}

func (a *Account) ApplyDeactivation(now time.Time) {
	a.Active = false
	a.UpdatedAt = now
}

func (a *Account) CanReactivate() error {
	if a.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "account is already active")
	}
	return nil
}

func (a *Account) ApplyReactivation(now time.Time) {
	a.Active = true
	a.UpdatedAt = now
}

func (a *Account) CanVerify() error {
	if a.Verified {
		return dErrors.New(dErrors.CodeInvariantViolation, "account is already verified")
	}
	return nil
}

func (a *Account) ApplyVerification(now time.Time) {
	a.Verified = true
	a.UpdatedAt = now
}

func (a *Account) CanVerifyVet() error {
	if a.Role != domain.RoleVet {
		return dErrors.New(dErrors.CodeInvariantViolation, "only vet accounts can be vet-verified")
	}
	if a.VetVerified {
		return dErrors.New(dErrors.CodeInvariantViolation, "vet is already verified")
	}
	return nil
}

func (a *Account) ApplyVetVerification(now time.Time) {
	a.VetVerified = true
	a.UpdatedAt = now
}

// ConfirmEmail marks the address as confirmed. Confirming twice keeps the
// first timestamp.
func (a *Account) ConfirmEmail(now time.Time) bool {
	if a.EmailVerified {
		return false
	}
	a.EmailVerified = true
	a.EmailVerifiedAt = &now
	a.UpdatedAt = now
	return true
}
