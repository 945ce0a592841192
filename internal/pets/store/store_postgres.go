package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"petcare/internal/pets/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

// PostgresStore persists pets in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const petColumns = `id, owner_id, name, species, active, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Pet) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO pets (`+petColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(p.ID), uuid.UUID(p.OwnerID), p.Name, p.Species, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert pet: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.PetID) (*models.Pet, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+petColumns+` FROM pets WHERE id = $1`, uuid.UUID(id))
	p, err := scanPet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find pet by id: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Pet) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pets SET name = $2, species = $3, active = $4, updated_at = $5
		WHERE id = $1`,
		uuid.UUID(p.ID), p.Name, p.Species, p.Active, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update pet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pet rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*models.Pet, error) {
	if f.IDs != nil && len(f.IDs) == 0 {
		return []*models.Pet{}, nil
	}
	var (
		where []string
		args  []any
	)
	if f.OwnerID != nil {
		args = append(args, uuid.UUID(*f.OwnerID))
		where = append(where, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if f.IDs != nil {
		ids := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			ids[i] = id.String()
		}
		args = append(args, pq.Array(ids))
		where = append(where, fmt.Sprintf("id = ANY($%d::uuid[])", len(args)))
	}
	if f.ActiveOnly {
		where = append(where, "active")
	}
	query := `SELECT ` + petColumns + ` FROM pets`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pets: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Pet, 0)
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pet: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pets: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPet(row rowScanner) (*models.Pet, error) {
	var (
		p           models.Pet
		id, ownerID uuid.UUID
	)
	if err := row.Scan(&id, &ownerID, &p.Name, &p.Species, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID = domain.PetID(id)
	p.OwnerID = domain.AccountID(ownerID)
	return &p, nil
}
