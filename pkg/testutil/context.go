package testutil

import (
	"net/http"

	"github.com/google/uuid"

	"petcare/pkg/domain"
	"petcare/pkg/requestcontext"
)

// AsCaller attaches an authenticated caller to the request context, the way
// the auth middleware would, together with the route used in audit detail.
func AsCaller(req *http.Request, caller domain.Caller) *http.Request {
	ctx := requestcontext.WithCaller(req.Context(), caller)
	ctx = requestcontext.WithRoute(ctx, req.Method, req.URL.Path)
	return req.WithContext(ctx)
}

// WithRequestID sets a fixed request ID.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// Owner returns an active owner caller with a fresh ID.
func Owner() domain.Caller {
	return domain.Caller{ID: domain.AccountID(uuid.New()), Role: domain.RoleOwner, Active: true, Verified: true}
}

// Shelter returns an active shelter caller with a fresh ID.
func Shelter() domain.Caller {
	return domain.Caller{ID: domain.AccountID(uuid.New()), Role: domain.RoleShelter, Active: true, Verified: true}
}

// Vet returns an active vet caller; verified controls VetVerified.
func Vet(verified bool) domain.Caller {
	return domain.Caller{ID: domain.AccountID(uuid.New()), Role: domain.RoleVet, Active: true, Verified: true, VetVerified: verified}
}

// Admin returns an active admin caller; verified controls Verified.
func Admin(verified bool) domain.Caller {
	return domain.Caller{ID: domain.AccountID(uuid.New()), Role: domain.RoleAdmin, Active: true, Verified: verified}
}
