package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "petcare/pkg/domain-errors"
)

func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAccountID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseAccountID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseAccountID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseAccountID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, AccountID(validUUID), id)
	})
}

// TestParseID_SecurityInvariants validates parsing rules at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE pets;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400\u200B-e29b-41d4-a716-446655440000", true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePetID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errAccount := ParseAccountID(validUUID)
		_, errPet := ParsePetID(validUUID)
		_, errAppt := ParseAppointmentID(validUUID)
		_, errDoc := ParseDocumentID(validUUID)
		_, errRoom := ParseChatRoomID(validUUID)

		require.NoError(t, errAccount)
		require.NoError(t, errPet)
		require.NoError(t, errAppt)
		require.NoError(t, errDoc)
		require.NoError(t, errRoom)
	})

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errAccount := ParseAccountID(input)
			_, errPet := ParsePetID(input)
			_, errAppt := ParseAppointmentID(input)
			_, errOrder := ParseOrderID(input)

			require.Error(t, errAccount)
			require.Error(t, errPet)
			require.Error(t, errAppt)
			require.Error(t, errOrder)
		})
	}
}

func TestIDs_JSONRoundTrip(t *testing.T) {
	type ids struct {
		Account      AccountID      `json:"account"`
		Pet          PetID          `json:"pet"`
		Appointment  AppointmentID  `json:"appointment"`
		Document     DocumentID     `json:"document"`
		HealthRecord HealthRecordID `json:"health_record"`
		Order        OrderID        `json:"order"`
		Notification NotificationID `json:"notification"`
		ChatRoom     ChatRoomID     `json:"chat_room"`
		AuditEntry   AuditEntryID   `json:"audit_entry"`
	}
	in := ids{
		Account:      AccountID(uuid.New()),
		Pet:          PetID(uuid.New()),
		Appointment:  AppointmentID(uuid.New()),
		Document:     DocumentID(uuid.New()),
		HealthRecord: HealthRecordID(uuid.New()),
		Order:        OrderID(uuid.New()),
		Notification: NotificationID(uuid.New()),
		ChatRoom:     ChatRoomID(uuid.New()),
		AuditEntry:   AuditEntryID(uuid.New()),
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"notification":"`+in.Notification.String()+`"`)

	var out ids
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestRole_ParseAndString(t *testing.T) {
	for _, name := range []string{"owner", "vet", "shelter", "admin"} {
		r, err := ParseRole(name)
		require.NoError(t, err)
		assert.Equal(t, name, r.String())
		assert.True(t, r.IsValid())
	}

	_, err := ParseRole("veterinarian")
	require.Error(t, err)
	assert.False(t, RoleUnknown.IsValid())
	assert.Equal(t, "unknown", RoleUnknown.String())
}

func TestCaller_Capabilities(t *testing.T) {
	vet := Caller{ID: AccountID(uuid.New()), Role: RoleVet, Active: true}
	assert.False(t, vet.CanActAsVet(), "unverified vet must not act as vet")

	vet.VetVerified = true
	assert.True(t, vet.CanActAsVet())

	admin := Caller{ID: AccountID(uuid.New()), Role: RoleAdmin}
	assert.False(t, admin.IsVerifiedAdmin())
	admin.Verified = true
	assert.True(t, admin.IsVerifiedAdmin())

	assert.False(t, Caller{}.IsAuthenticated())
}
