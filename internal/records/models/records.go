package models

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
)

const (
	maxTitleLength   = 200
	maxSummaryLength = 4000
)

// Document is a file reference attached to a pet by its owner.
type Document struct {
	ID        domain.DocumentID `json:"id"`
	PetID     domain.PetID      `json:"pet_id"`
	OwnerID   domain.AccountID  `json:"owner_id"`
	Title     string            `json:"title"`
	Kind      string            `json:"kind"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewDocument(id domain.DocumentID, petID domain.PetID, ownerID domain.AccountID, title, kind string, now time.Time) (*Document, error) {
	title = strings.TrimSpace(title)
	kind = strings.ToLower(strings.TrimSpace(kind))
	if petID.IsNil() || ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "pet and owner are required")
	}
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "title must be at most 200 characters")
	}
	if kind == "" {
		kind = "other"
	}
	return &Document{
		ID:        id,
		PetID:     petID,
		OwnerID:   ownerID,
		Title:     title,
		Kind:      kind,
		CreatedAt: now,
	}, nil
}

func (d *Document) ResourceType() string    { return "document" }
func (d *Document) ResourceID() string      { return d.ID.String() }
func (d *Document) Owner() domain.AccountID { return d.OwnerID }
func (d *Document) PetRef() domain.PetID    { return d.PetID }

// RecordKind classifies a health record.
type RecordKind string

const (
	KindExam        RecordKind = "exam"
	KindVaccination RecordKind = "vaccination"
	KindDiagnosis   RecordKind = "diagnosis"
	KindTreatment   RecordKind = "treatment"
	KindNote        RecordKind = "note"
)

var recordKinds = []RecordKind{KindExam, KindVaccination, KindDiagnosis, KindTreatment, KindNote}

func ParseRecordKind(s string) (RecordKind, error) {
	k := RecordKind(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(recordKinds, k) {
		return "", dErrors.New(dErrors.CodeValidation, "unknown health record kind: "+s)
	}
	return k, nil
}

// HealthRecord is a clinical entry written by the treating vet. OwnerID is
// copied from the pet at write time.
type HealthRecord struct {
	ID         domain.HealthRecordID `json:"id"`
	PetID      domain.PetID          `json:"pet_id"`
	OwnerID    domain.AccountID      `json:"owner_id"`
	VetID      domain.AccountID      `json:"vet_id"`
	Kind       RecordKind            `json:"kind"`
	Summary    string                `json:"summary"`
	RecordedAt time.Time             `json:"recorded_at"`
	CreatedAt  time.Time             `json:"created_at"`
}

func NewHealthRecord(id domain.HealthRecordID, petID domain.PetID, ownerID, vetID domain.AccountID, kind RecordKind, summary string, recordedAt, now time.Time) (*HealthRecord, error) {
	summary = strings.TrimSpace(summary)
	if petID.IsNil() || ownerID.IsNil() || vetID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "pet, owner and vet are required")
	}
	if !slices.Contains(recordKinds, kind) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown health record kind")
	}
	if summary == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "summary is required")
	}
	if utf8.RuneCountInString(summary) > maxSummaryLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "summary must be at most 4000 characters")
	}
	if recordedAt.IsZero() {
		recordedAt = now
	}
	if recordedAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "recorded_at cannot be in the future")
	}
	return &HealthRecord{
		ID:         id,
		PetID:      petID,
		OwnerID:    ownerID,
		VetID:      vetID,
		Kind:       kind,
		Summary:    summary,
		RecordedAt: recordedAt,
		CreatedAt:  now,
	}, nil
}

func (h *HealthRecord) ResourceType() string    { return "health_record" }
func (h *HealthRecord) ResourceID() string      { return h.ID.String() }
func (h *HealthRecord) Owner() domain.AccountID { return h.OwnerID }
func (h *HealthRecord) PetRef() domain.PetID    { return h.PetID }
