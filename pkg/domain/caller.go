package domain

// Caller is the per-request snapshot of the authenticated account. It is
// rebuilt from the account store on every request; never cache it.
type Caller struct {
	ID          AccountID
	Role        Role
	Active      bool
	Verified    bool
	VetVerified bool
}

// IsAuthenticated reports whether the caller was resolved from a credential.
func (c Caller) IsAuthenticated() bool {
	return !c.ID.IsNil()
}

// IsVerifiedAdmin reports whether the caller holds an approved admin account.
func (c Caller) IsVerifiedAdmin() bool {
	return c.Role == RoleAdmin && c.Verified
}

// CanActAsVet reports whether vet-only operations are open to the caller.
func (c Caller) CanActAsVet() bool {
	return c.Role == RoleVet && c.VetVerified
}
