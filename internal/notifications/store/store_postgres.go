package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"petcare/internal/notifications/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

// PostgresStore persists notifications in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const notificationColumns = `id, recipient_id, sender_id, title, body, type, priority, payload, read, read_at, expires_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	if n.Payload == nil {
		payload = []byte("{}")
	}
	var sender uuid.NullUUID
	if n.SenderID != nil {
		sender = uuid.NullUUID{UUID: uuid.UUID(*n.SenderID), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.UUID(n.ID), uuid.UUID(n.RecipientID), sender, n.Title, n.Body,
		string(n.Type), string(n.Priority), payload, n.Read, nullTime(n.ReadAt), nullTime(n.ExpiresAt), n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.NotificationID) (*models.Notification, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, uuid.UUID(id))
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find notification by id: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, n *models.Notification) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = $2, read_at = $3 WHERE id = $1`,
		uuid.UUID(n.ID), n.Read, nullTime(n.ReadAt))
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListForRecipient(ctx context.Context, recipient domain.AccountID, f Filter) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = $1`
	args := []any{uuid.UUID(recipient)}
	if f.UnreadOnly {
		query += ` AND NOT read`
	}
	if !f.Now.IsZero() {
		args = append(args, f.Now)
		query += fmt.Sprintf(` AND (expires_at IS NULL OR expires_at > $%d)`, len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n                 models.Notification
		id, recipient     uuid.UUID
		sender            uuid.NullUUID
		kind, priority    string
		payload           []byte
		readAt, expiresAt sql.NullTime
	)
	if err := row.Scan(&id, &recipient, &sender, &n.Title, &n.Body, &kind, &priority,
		&payload, &n.Read, &readAt, &expiresAt, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.ID = domain.NotificationID(id)
	n.RecipientID = domain.AccountID(recipient)
	if sender.Valid {
		s := domain.AccountID(sender.UUID)
		n.SenderID = &s
	}
	n.Type = models.Type(kind)
	n.Priority = models.Priority(priority)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &n.Payload); err != nil {
			return nil, fmt.Errorf("decode notification payload: %w", err)
		}
		if len(n.Payload) == 0 {
			n.Payload = nil
		}
	}
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		n.ExpiresAt = &t
	}
	return &n, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
