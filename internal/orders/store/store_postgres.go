package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"petcare/internal/orders/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

// PostgresStore persists orders in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const orderColumns = `id, owner_id, status, total_cents, currency, created_at`

func (s *PostgresStore) Create(ctx context.Context, o *models.Order) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(o.ID), uuid.UUID(o.OwnerID), string(o.Status), o.TotalCents, o.Currency, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.OrderID) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, uuid.UUID(id))
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find order by id: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) List(ctx context.Context, ownerID *domain.AccountID) ([]*models.Order, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if ownerID != nil {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`, uuid.UUID(*ownerID))
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		o           models.Order
		id, ownerID uuid.UUID
		status      string
	)
	if err := row.Scan(&id, &ownerID, &status, &o.TotalCents, &o.Currency, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.ID = domain.OrderID(id)
	o.OwnerID = domain.AccountID(ownerID)
	o.Status = models.Status(status)
	return &o, nil
}
