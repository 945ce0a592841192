package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
)

const maxNameLength = 100

// Pet has exactly one owner for its whole life; there is no transfer.
type Pet struct {
	ID        domain.PetID     `json:"id"`
	OwnerID   domain.AccountID `json:"owner_id"`
	Name      string           `json:"name"`
	Species   string           `json:"species"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func NewPet(id domain.PetID, ownerID domain.AccountID, name, species string, now time.Time) (*Pet, error) {
	name = strings.TrimSpace(name)
	species = strings.ToLower(strings.TrimSpace(species))
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name must be at most 100 characters")
	}
	if species == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "species is required")
	}
	return &Pet{
		ID:        id,
		OwnerID:   ownerID,
		Name:      name,
		Species:   species,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *Pet) ResourceType() string    { return "pet" }
func (p *Pet) ResourceID() string      { return p.ID.String() }
func (p *Pet) Owner() domain.AccountID { return p.OwnerID }
func (p *Pet) PetRef() domain.PetID    { return p.ID }

func (p *Pet) CanDeactivate() error {
	if !p.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "pet is already inactive")
	}
	return nil
}

func (p *Pet) ApplyDeactivation(now time.Time) {
	p.Active = false
	p.UpdatedAt = now
}
