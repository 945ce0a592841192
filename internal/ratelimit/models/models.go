package models

import "time"

// EndpointClass categorizes endpoints for differentiated rate limiting.
type EndpointClass string

const (
	// ClassAuth: credential endpoints (login, registration)
	ClassAuth EndpointClass = "auth"
	// ClassWrite: authenticated mutations
	ClassWrite EndpointClass = "write"
)

// IsValid checks if the endpoint class is one of the supported enum values.
func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassAuth, ClassWrite:
		return true
	}
	return false
}

// Policy is the sliding window applied to one endpoint class.
type Policy struct {
	Limit  int
	Window time.Duration
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, only set when not allowed
}
