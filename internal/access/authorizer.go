package access

import (
	"context"

	"petcare/pkg/domain"
	audit "petcare/pkg/platform/audit"
)

// Authorizer routes a caller to the resolver that matches its role: vets are
// checked through their appointments, everyone else through ownership.
type Authorizer struct {
	Relationships *RelationshipResolver
	Ownership     *OwnershipResolver
}

func NewAuthorizer(relationships *RelationshipResolver, ownership *OwnershipResolver) *Authorizer {
	return &Authorizer{Relationships: relationships, Ownership: ownership}
}

// AuthorizePetScoped decides access to a resource attached to a pet. action
// is the audit action a vet denial produces.
func AuthorizePetScoped[R PetScoped](ctx context.Context, a *Authorizer, caller domain.Caller, resource R, op OperationClass, action audit.Action) error {
	return AuthorizeVia(ctx, a, caller, resource, op, Target{
		PetID:        resource.PetRef(),
		ResourceType: resource.ResourceType(),
		ResourceID:   resource.ResourceID(),
		DenialAction: action,
	})
}

// AuthorizeVia checks vets against target and everyone else against the
// owner of owned. Use it when the protected collection is named differently
// from the resource that carries the owner, e.g. a pet's health records.
func AuthorizeVia[R Owned](ctx context.Context, a *Authorizer, caller domain.Caller, owned R, op OperationClass, target Target) error {
	switch caller.Role {
	case domain.RoleVet:
		return a.Relationships.ResolveTarget(ctx, caller, target, op)
	default:
		return RequireOwnership(ctx, a.Ownership, caller, owned, OwnerOf[R]())
	}
}
