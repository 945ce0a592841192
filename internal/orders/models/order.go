package models

import (
	"strings"
	"time"

	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCancelled Status = "cancelled"
)

// Order is a purchase placed by an account. Only its owner may read it.
type Order struct {
	ID         domain.OrderID   `json:"id"`
	OwnerID    domain.AccountID `json:"owner_id"`
	Status     Status           `json:"status"`
	TotalCents int64            `json:"total_cents"`
	Currency   string           `json:"currency"`
	CreatedAt  time.Time        `json:"created_at"`
}

func NewOrder(id domain.OrderID, ownerID domain.AccountID, totalCents int64, currency string, now time.Time) (*Order, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner is required")
	}
	if totalCents <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "total must be positive")
	}
	if len(currency) != 3 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "currency must be a three letter ISO code")
	}
	return &Order{
		ID:         id,
		OwnerID:    ownerID,
		Status:     StatusPending,
		TotalCents: totalCents,
		Currency:   currency,
		CreatedAt:  now,
	}, nil
}

func (o *Order) ResourceType() string    { return "order" }
func (o *Order) ResourceID() string      { return o.ID.String() }
func (o *Order) Owner() domain.AccountID { return o.OwnerID }
