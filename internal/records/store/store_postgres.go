package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"petcare/internal/records/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

// PostgresStore persists documents and health records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	documentColumns = `id, pet_id, owner_id, title, kind, created_at`
	recordColumns   = `id, pet_id, owner_id, vet_id, kind, summary, recorded_at, created_at`
)

func (s *PostgresStore) CreateDocument(ctx context.Context, d *models.Document) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (`+documentColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(d.ID), uuid.UUID(d.PetID), uuid.UUID(d.OwnerID), d.Title, d.Kind, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDocument(ctx context.Context, id domain.DocumentID) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, uuid.UUID(id))
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document by id: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListDocumentsForPet(ctx context.Context, petID domain.PetID) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE pet_id = $1 ORDER BY created_at, id`, uuid.UUID(petID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateHealthRecord(ctx context.Context, h *models.HealthRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO health_records (`+recordColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(h.ID), uuid.UUID(h.PetID), uuid.UUID(h.OwnerID), uuid.UUID(h.VetID),
		string(h.Kind), h.Summary, h.RecordedAt, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert health record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListHealthRecordsForPet(ctx context.Context, petID domain.PetID) ([]*models.HealthRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM health_records WHERE pet_id = $1 ORDER BY recorded_at DESC, id DESC`, uuid.UUID(petID))
	if err != nil {
		return nil, fmt.Errorf("list health records: %w", err)
	}
	defer rows.Close()

	out := make([]*models.HealthRecord, 0)
	for rows.Next() {
		h, err := scanHealthRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan health record: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate health records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		d                  models.Document
		id, petID, ownerID uuid.UUID
	)
	if err := row.Scan(&id, &petID, &ownerID, &d.Title, &d.Kind, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.ID = domain.DocumentID(id)
	d.PetID = domain.PetID(petID)
	d.OwnerID = domain.AccountID(ownerID)
	return &d, nil
}

func scanHealthRecord(row rowScanner) (*models.HealthRecord, error) {
	var (
		h                         models.HealthRecord
		id, petID, ownerID, vetID uuid.UUID
		kind                      string
	)
	if err := row.Scan(&id, &petID, &ownerID, &vetID, &kind, &h.Summary, &h.RecordedAt, &h.CreatedAt); err != nil {
		return nil, err
	}
	h.ID = domain.HealthRecordID(id)
	h.PetID = domain.PetID(petID)
	h.OwnerID = domain.AccountID(ownerID)
	h.VetID = domain.AccountID(vetID)
	h.Kind = models.RecordKind(kind)
	return &h, nil
}
