package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"petcare/internal/chat/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists chat rooms and messages in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	roomColumns    = `id, appointment_id, pet_id, owner_id, vet_id, created_at`
	messageColumns = `id, room_id, sender_id, body, created_at`
)

func (s *PostgresStore) CreateRoom(ctx context.Context, r *models.Room) error {
	var appointmentID uuid.NullUUID
	if r.AppointmentID != nil {
		appointmentID = uuid.NullUUID{UUID: uuid.UUID(*r.AppointmentID), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO chat_rooms (`+roomColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(r.ID), appointmentID, uuid.UUID(r.PetID), uuid.UUID(r.OwnerID), uuid.UUID(r.VetID), r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert chat room: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindRoom(ctx context.Context, id domain.ChatRoomID) (*models.Room, error) {
	return s.findRoom(ctx, `SELECT `+roomColumns+` FROM chat_rooms WHERE id = $1`, uuid.UUID(id))
}

func (s *PostgresStore) FindRoomByAppointment(ctx context.Context, id domain.AppointmentID) (*models.Room, error) {
	return s.findRoom(ctx, `SELECT `+roomColumns+` FROM chat_rooms WHERE appointment_id = $1`, uuid.UUID(id))
}

func (s *PostgresStore) findRoom(ctx context.Context, query string, arg uuid.UUID) (*models.Room, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	var (
		r                         models.Room
		id, petID, ownerID, vetID uuid.UUID
		appointmentID             uuid.NullUUID
	)
	if err := row.Scan(&id, &appointmentID, &petID, &ownerID, &vetID, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find chat room: %w", err)
	}
	r.ID = domain.ChatRoomID(id)
	r.PetID = domain.PetID(petID)
	r.OwnerID = domain.AccountID(ownerID)
	r.VetID = domain.AccountID(vetID)
	if appointmentID.Valid {
		apptID := domain.AppointmentID(appointmentID.UUID)
		r.AppointmentID = &apptID
	}
	return &r, nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, m *models.Message) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO chat_messages (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, uuid.UUID(m.RoomID), uuid.UUID(m.SenderID), m.Body, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, roomID domain.ChatRoomID, limit int) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+` FROM chat_messages
			WHERE room_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent ORDER BY created_at, id`, uuid.UUID(roomID), limit)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Message, 0)
	for rows.Next() {
		var (
			m                models.Message
			roomUUID, sender uuid.UUID
		)
		if err := rows.Scan(&m.ID, &roomUUID, &sender, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.RoomID = domain.ChatRoomID(roomUUID)
		m.SenderID = domain.AccountID(sender)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return out, nil
}
