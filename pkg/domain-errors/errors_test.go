package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode_ThroughWrapping(t *testing.T) {
	base := New(CodeNotFound, "pet not found")
	wrapped := fmt.Errorf("load pet: %w", base)

	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeForbidden))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
}

func TestErrorsIs_MatchesCodeAndMessage(t *testing.T) {
	err := Wrap(errors.New("boom"), CodeInternal, "failed to load")
	require.ErrorIs(t, err, New(CodeInternal, "failed to load"))
	assert.NotErrorIs(t, err, New(CodeInternal, "something else"))
}

func TestForbidden_CarriesReason(t *testing.T) {
	err := fmt.Errorf("guard: %w", Forbidden("role_mismatch", "role not permitted"))
	assert.True(t, HasCode(err, CodeForbidden))
	assert.Equal(t, "role_mismatch", ReasonOf(err))
	assert.Equal(t, "", ReasonOf(errors.New("plain")))
}
