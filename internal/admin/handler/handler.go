// Package handler exposes the admin audit log viewer.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/httputil"
	"petcare/pkg/requestcontext"
)

// AuditQuerier reads the audit log. *publisher.Publisher satisfies it.
type AuditQuerier interface {
	Query(ctx context.Context, filter audit.Filter, page audit.Page) ([]audit.Entry, error)
}

type Handler struct {
	logger *slog.Logger
	audit  AuditQuerier
}

func New(q AuditQuerier, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, audit: q}
}

// RegisterAdmin mounts the viewer. The caller must already be behind the
// verified-admin gate.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/audit-logs", h.HandleListAuditLogs)
}

// AuditEntryResponse is the wire shape of one audit row.
type AuditEntryResponse struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id,omitempty"`
	ActorRole    string         `json:"actor_role,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
	Origin       string         `json:"origin,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	Severity     string         `json:"severity"`
	Outcome      string         `json:"outcome"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditLogResponse wraps one page of entries.
type AuditLogResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
	Count   int                  `json:"count"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

func toEntryResponse(e audit.Entry) AuditEntryResponse {
	resp := AuditEntryResponse{
		ID:           e.ID.String(),
		ActorRole:    string(e.ActorRole),
		Action:       string(e.Action),
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Detail:       e.Detail,
		Origin:       e.Origin,
		UserAgent:    e.UserAgent,
		RequestID:    e.RequestID,
		Severity:     string(e.Severity),
		Outcome:      string(e.Outcome),
		CreatedAt:    e.CreatedAt,
	}
	if !e.ActorID.IsNil() {
		resp.ActorID = e.ActorID.String()
	}
	return resp
}

func (h *Handler) HandleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, page, err := parseQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.audit.Query(ctx, filter, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to query audit log",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit log"))
		return
	}

	resp := AuditLogResponse{
		Entries: make([]AuditEntryResponse, 0, len(entries)),
		Count:   len(entries),
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toEntryResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func parseQuery(r *http.Request) (audit.Filter, audit.Page, error) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:       audit.Action(q.Get("action")),
		ResourceType: q.Get("resource_type"),
	}
	if raw := q.Get("actor_id"); raw != "" {
		id, err := domain.ParseAccountID(raw)
		if err != nil {
			return filter, audit.Page{}, dErrors.New(dErrors.CodeValidation, "invalid actor_id")
		}
		filter.ActorID = id
	}
	switch sev := audit.Severity(q.Get("severity")); sev {
	case "", audit.SeverityInfo, audit.SeverityWarning, audit.SeverityCritical:
		filter.Severity = sev
	default:
		return filter, audit.Page{}, dErrors.New(dErrors.CodeValidation, "invalid severity")
	}

	var page audit.Page
	var err error
	if page.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return filter, page, err
	}
	if page.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return filter, page, err
	}
	return filter, page.Normalize(), nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid "+name)
	}
	return n, nil
}
