package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"petcare/pkg/domain"
	audit "petcare/pkg/platform/audit"
)

// Store implements audit.Store on the audit_log_entries table. The table is
// append-only; this type exposes no update or delete.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an entry. Idempotent on the entry ID.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	detail := []byte("{}")
	if len(entry.Detail) > 0 {
		b, err := json.Marshal(entry.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
		detail = b
	}

	var actorID uuid.NullUUID
	if !entry.ActorID.IsNil() {
		actorID = uuid.NullUUID{UUID: uuid.UUID(entry.ActorID), Valid: true}
	}
	var actorRole sql.NullString
	if entry.ActorRole.IsValid() {
		actorRole = sql.NullString{String: entry.ActorRole.String(), Valid: true}
	}

	query := `
		INSERT INTO audit_log_entries (
			id, actor_id, actor_role, action, resource_type, resource_id,
			detail, origin, user_agent, request_id, severity, outcome, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		actorID,
		actorRole,
		string(entry.Action),
		entry.ResourceType,
		entry.ResourceID,
		detail,
		entry.Origin,
		entry.UserAgent,
		entry.RequestID,
		string(entry.Severity),
		string(entry.Outcome),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query returns entries matching filter, newest first.
func (s *Store) Query(ctx context.Context, filter audit.Filter, page audit.Page) ([]audit.Entry, error) {
	page = page.Normalize()

	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !filter.ActorID.IsNil() {
		add("actor_id = $%d", uuid.UUID(filter.ActorID))
	}
	if filter.Action != "" {
		add("action = $%d", string(filter.Action))
	}
	if filter.ResourceType != "" {
		add("resource_type = $%d", filter.ResourceType)
	}
	if filter.Severity != "" {
		add("severity = $%d", string(filter.Severity))
	}

	var b strings.Builder
	b.WriteString(`
		SELECT id, actor_id, actor_role, action, resource_type, resource_id,
			   detail, origin, user_agent, request_id, severity, outcome, created_at
		FROM audit_log_entries`)
	if len(conds) > 0 {
		b.WriteString("\n\t\tWHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	args = append(args, page.Limit, page.Offset)
	fmt.Fprintf(&b, "\n\t\tORDER BY created_at DESC, id DESC\n\t\tLIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	entries := []audit.Entry{}
	for rows.Next() {
		var (
			e         audit.Entry
			id        uuid.UUID
			actorID   uuid.NullUUID
			actorRole sql.NullString
			action    string
			detail    []byte
			severity  string
			outcome   string
		)
		err := rows.Scan(
			&id,
			&actorID,
			&actorRole,
			&action,
			&e.ResourceType,
			&e.ResourceID,
			&detail,
			&e.Origin,
			&e.UserAgent,
			&e.RequestID,
			&severity,
			&outcome,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ID = domain.AuditEntryID(id)
		if actorID.Valid {
			e.ActorID = domain.AccountID(actorID.UUID)
		}
		if actorRole.Valid {
			if role, err := domain.ParseRole(actorRole.String); err == nil {
				e.ActorRole = role
			}
		}
		e.Action = audit.Action(action)
		e.Severity = audit.Severity(severity)
		e.Outcome = audit.Outcome(outcome)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, fmt.Errorf("decode audit detail: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

var _ audit.Store = (*Store)(nil)
