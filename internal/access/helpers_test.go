package access

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"petcare/pkg/domain"
	audit "petcare/pkg/platform/audit"
)

type recordingAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingAuditor) Record(ctx context.Context, e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, audit.Enrich(ctx, e))
}

func (r *recordingAuditor) all() []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Entry(nil), r.entries...)
}

func (r *recordingAuditor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type testPet struct {
	id    domain.PetID
	owner domain.AccountID
}

func newTestPet(owner domain.AccountID) testPet {
	return testPet{id: domain.PetID(uuid.New()), owner: owner}
}

func (p testPet) ResourceType() string    { return "pet" }
func (p testPet) ResourceID() string      { return p.id.String() }
func (p testPet) Owner() domain.AccountID { return p.owner }
func (p testPet) PetRef() domain.PetID    { return p.id }

type testAppointment struct {
	id    string
	owner domain.AccountID
	vet   domain.AccountID
}

func (a testAppointment) ResourceType() string { return "appointment" }
func (a testAppointment) ResourceID() string   { return a.id }
func (a testAppointment) Participants() []domain.AccountID {
	return []domain.AccountID{a.owner, a.vet}
}
