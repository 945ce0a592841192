package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"petcare/internal/account/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists accounts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed account store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const accountColumns = `id, email, password_hash, role, active, verified, vet_verified,
	email_verified, email_verified_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, a *models.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.ID), a.Email, a.PasswordHash, a.Role.String(),
		a.Active, a.Verified, a.VetVerified,
		a.EmailVerified, a.EmailVerifiedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, uuid.UUID(id))
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, models.NormalizeEmail(email))
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return a, nil
}

// Update writes the mutable flags. Email and role are never updated.
func (s *PostgresStore) Update(ctx context.Context, a *models.Account) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET password_hash = $2, active = $3, verified = $4, vet_verified = $5,
			email_verified = $6, email_verified_at = $7, updated_at = $8
		WHERE id = $1`,
		uuid.UUID(a.ID), a.PasswordHash, a.Active, a.Verified, a.VetVerified,
		a.EmailVerified, a.EmailVerifiedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListActiveVerifiedAdmins(ctx context.Context) ([]domain.AccountID, error) {
	return s.queryIDs(ctx, `
		SELECT id FROM accounts
		WHERE active AND verified AND role = $1
		ORDER BY id`, domain.RoleAdmin.String())
}

func (s *PostgresStore) ListActiveIDsByRoles(ctx context.Context, roles []domain.Role) ([]domain.AccountID, error) {
	if len(roles) == 0 {
		return s.queryIDs(ctx, `SELECT id FROM accounts WHERE active ORDER BY id`)
	}
	return s.queryIDs(ctx, `
		SELECT id FROM accounts
		WHERE active AND role = ANY($1)
		ORDER BY id`, pq.Array(domain.Roles(roles)))
}

func (s *PostgresStore) queryIDs(ctx context.Context, query string, args ...any) ([]domain.AccountID, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query account ids: %w", err)
	}
	defer rows.Close()

	var ids []domain.AccountID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, domain.AccountID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account ids: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a    models.Account
		id   uuid.UUID
		role string
		at   sql.NullTime
	)
	if err := row.Scan(&id, &a.Email, &a.PasswordHash, &role, &a.Active, &a.Verified,
		&a.VetVerified, &a.EmailVerified, &at, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("decode account role: %w", err)
	}
	a.ID = domain.AccountID(id)
	a.Role = parsed
	if at.Valid {
		t := at.Time
		a.EmailVerifiedAt = &t
	}
	return &a, nil
}
