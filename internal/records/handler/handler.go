package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"petcare/internal/access"
	"petcare/internal/records/models"
	"petcare/internal/records/service"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/platform/httputil"
	"petcare/pkg/requestcontext"
)

// Service defines the document and health record operations exposed over HTTP.
type Service interface {
	EnsurePet(ctx context.Context, petID domain.PetID) error
	ListHealthRecords(ctx context.Context, petID domain.PetID) ([]*models.HealthRecord, error)
	CreateHealthRecord(ctx context.Context, petID domain.PetID, in service.HealthRecordInput) (*models.HealthRecord, error)
	CreateDocument(ctx context.Context, petID domain.PetID, in service.DocumentInput) (*models.Document, error)
	GetDocument(ctx context.Context, id domain.DocumentID) (*models.Document, error)
	ListDocuments(ctx context.Context, petID domain.PetID) ([]*models.Document, error)
}

type Handler struct {
	logger        *slog.Logger
	records       Service
	relationships *access.RelationshipResolver
}

func New(records Service, relationships *access.RelationshipResolver, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, records: records, relationships: relationships}
}

// Register mounts the record routes. The caller wraps r with authentication.
func (h *Handler) Register(r chi.Router) {
	writeGuard := h.relationships.RequireVetRelationship("petID", access.OperationWrite, h.records.EnsurePet, func(id domain.PetID) access.Target {
		return access.HealthRecordTarget(id, "")
	})

	r.Get("/pets/{petID}/health-records", h.HandleListHealthRecords)
	r.With(writeGuard).Post("/pets/{petID}/health-records", h.HandleCreateHealthRecord)
	r.Get("/pets/{petID}/documents", h.HandleListDocuments)
	r.Post("/pets/{petID}/documents", h.HandleCreateDocument)
	r.Get("/documents/{documentID}", h.HandleGetDocument)
}

type healthRecordRequest struct {
	Kind       string    `json:"kind"`
	Summary    string    `json:"summary"`
	RecordedAt time.Time `json:"recorded_at"`
}

type documentRequest struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

type HealthRecordResponse struct {
	ID         string    `json:"id"`
	PetID      string    `json:"pet_id"`
	VetID      string    `json:"vet_id"`
	Kind       string    `json:"kind"`
	Summary    string    `json:"summary"`
	RecordedAt time.Time `json:"recorded_at"`
}

type DocumentResponse struct {
	ID        string    `json:"id"`
	PetID     string    `json:"pet_id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

type healthRecordList struct {
	HealthRecords []HealthRecordResponse `json:"health_records"`
	Count         int                    `json:"count"`
}

type documentList struct {
	Documents []DocumentResponse `json:"documents"`
	Count     int                `json:"count"`
}

func toHealthRecordResponse(r *models.HealthRecord) HealthRecordResponse {
	return HealthRecordResponse{
		ID:         r.ID.String(),
		PetID:      r.PetID.String(),
		VetID:      r.VetID.String(),
		Kind:       string(r.Kind),
		Summary:    r.Summary,
		RecordedAt: r.RecordedAt,
	}
}

func toDocumentResponse(d *models.Document) DocumentResponse {
	return DocumentResponse{
		ID:        d.ID.String(),
		PetID:     d.PetID.String(),
		OwnerID:   d.OwnerID.String(),
		Title:     d.Title,
		Kind:      d.Kind,
		CreatedAt: d.CreatedAt,
	}
}

func petParam(r *http.Request) (domain.PetID, error) {
	return domain.ParsePetID(chi.URLParam(r, "petID"))
}

func (h *Handler) HandleListHealthRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	petID, err := petParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.records.ListHealthRecords(ctx, petID)
	if err != nil {
		h.logError(ctx, "failed to list health records", err,
			"request_id", requestcontext.RequestID(ctx),
			"pet_id", petID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	resp := healthRecordList{HealthRecords: make([]HealthRecordResponse, 0, len(records)), Count: len(records)}
	for _, rec := range records {
		resp.HealthRecords = append(resp.HealthRecords, toHealthRecordResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleCreateHealthRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	petID, err := petParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req healthRecordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := models.ParseRecordKind(req.Kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.records.CreateHealthRecord(ctx, petID, service.HealthRecordInput{
		Kind:       kind,
		Summary:    req.Summary,
		RecordedAt: req.RecordedAt,
	})
	if err != nil {
		h.logError(ctx, "failed to create health record", err,
			"request_id", requestID,
			"pet_id", petID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "health record created",
		"request_id", requestID,
		"pet_id", petID.String(),
		"health_record_id", record.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, toHealthRecordResponse(record))
}

func (h *Handler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	petID, err := petParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docs, err := h.records.ListDocuments(ctx, petID)
	if err != nil {
		h.logError(ctx, "failed to list documents", err,
			"request_id", requestcontext.RequestID(ctx),
			"pet_id", petID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	resp := documentList{Documents: make([]DocumentResponse, 0, len(docs)), Count: len(docs)}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, toDocumentResponse(d))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleCreateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	petID, err := petParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req documentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.records.CreateDocument(ctx, petID, service.DocumentInput{Title: req.Title, Kind: req.Kind})
	if err != nil {
		h.logError(ctx, "failed to create document", err,
			"request_id", requestcontext.RequestID(ctx),
			"pet_id", petID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.records.GetDocument(ctx, id)
	if err != nil {
		h.logError(ctx, "failed to get document", err,
			"request_id", requestcontext.RequestID(ctx),
			"document_id", id.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) logError(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}
