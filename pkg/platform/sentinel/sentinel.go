// Package sentinel holds store-level facts. Stores return them, possibly
// wrapped, and services translate them into coded domain errors.
package sentinel

import "errors"

var (
	// ErrNotFound: no row for the key.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a unique key is already taken (email, room per appointment).
	ErrConflict = errors.New("conflict")
	// ErrInvalidState: the request cannot apply to the stored state (e.g. a
	// non-positive revocation TTL).
	ErrInvalidState = errors.New("invalid state")
)
