package testutil

import (
	"maps"
	"slices"
	"testing"

	"petcare/pkg/domain"
)

// Given, When and Then name nested subtests so a failing case reads as a
// scenario.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}

// AsEach runs fn once per named caller, in name order, for role matrices
// where several callers should see the same outcome.
func AsEach(t *testing.T, callers map[string]domain.Caller, fn func(t *testing.T, caller domain.Caller)) {
	t.Helper()
	for _, name := range slices.Sorted(maps.Keys(callers)) {
		caller := callers[name]
		t.Run("As "+name, func(t *testing.T) { fn(t, caller) })
	}
}
