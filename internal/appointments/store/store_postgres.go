package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"petcare/internal/appointments/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

// PostgresStore persists appointments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const appointmentColumns = `id, pet_id, owner_id, vet_id, status, vet_accepted, scheduled_at, reason, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, a *models.Appointment) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(a.ID), uuid.UUID(a.PetID), uuid.UUID(a.OwnerID), uuid.UUID(a.VetID),
		string(a.Status), a.VetAccepted, a.ScheduledAt, a.Reason, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.AppointmentID) (*models.Appointment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, uuid.UUID(id))
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find appointment by id: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Update(ctx context.Context, a *models.Appointment) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE appointments SET status = $2, vet_accepted = $3, scheduled_at = $4, updated_at = $5
		WHERE id = $1`,
		uuid.UUID(a.ID), string(a.Status), a.VetAccepted, a.ScheduledAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update appointment rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ExistsForVetAndPet(ctx context.Context, vetID domain.AccountID, petID domain.PetID, statuses []models.Status) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE vet_id = $1 AND pet_id = $2 AND status = ANY($3)
		)`,
		uuid.UUID(vetID), uuid.UUID(petID), pq.Array(models.Strings(statuses)),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vet appointment: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) PetIDsForVet(ctx context.Context, vetID domain.AccountID, statuses []models.Status) ([]domain.PetID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT pet_id FROM appointments
		WHERE vet_id = $1 AND status = ANY($2)`,
		uuid.UUID(vetID), pq.Array(models.Strings(statuses)))
	if err != nil {
		return nil, fmt.Errorf("list vet pets: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PetID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan vet pet: %w", err)
		}
		out = append(out, domain.PetID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vet pets: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*models.Appointment, error) {
	var (
		where []string
		args  []any
	)
	if f.ParticipantID != nil {
		args = append(args, uuid.UUID(*f.ParticipantID))
		where = append(where, fmt.Sprintf("(owner_id = $%d OR vet_id = $%d)", len(args), len(args)))
	}
	if f.PetID != nil {
		args = append(args, uuid.UUID(*f.PetID))
		where = append(where, fmt.Sprintf("pet_id = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		args = append(args, pq.Array(models.Strings(f.Statuses)))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY scheduled_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var (
		a                  models.Appointment
		id, petID, ownerID uuid.UUID
		vetID              uuid.UUID
		status             string
	)
	if err := row.Scan(&id, &petID, &ownerID, &vetID, &status, &a.VetAccepted,
		&a.ScheduledAt, &a.Reason, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.ID = domain.AppointmentID(id)
	a.PetID = domain.PetID(petID)
	a.OwnerID = domain.AccountID(ownerID)
	a.VetID = domain.AccountID(vetID)
	a.Status = models.Status(status)
	return &a, nil
}
