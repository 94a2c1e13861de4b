package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ingestgate/pkg/domain-errors"
)

// IDs must be valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParsePartnerID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParsePartnerID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParsePartnerID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParsePartnerID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, PartnerID(validUUID), id)
	})
}

// Path parameters reach ParseEventID unfiltered, so hostile input must be
// rejected rather than passed to a store.
func TestParseEventID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE ingestion_events;--", true},
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
			_, err := ParseEventID(tt.input)
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
		_, errPartner := ParsePartnerID(validUUID)
		_, errCredential := ParseCredentialID(validUUID)
		_, errEvent := ParseEventID(validUUID)
		_, errInsight := ParseInsightID(validUUID)

		require.NoError(t, errPartner)
		require.NoError(t, errCredential)
		require.NoError(t, errEvent)
		require.NoError(t, errInsight)
	})

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errPartner := ParsePartnerID(input)
			_, errCredential := ParseCredentialID(input)
			_, errEvent := ParseEventID(input)
			_, errInsight := ParseInsightID(input)

			require.Error(t, errPartner)
			require.Error(t, errCredential)
			require.Error(t, errEvent)
			require.Error(t, errInsight)
		})
	}
}

func TestNewIDs_AreDistinctAndNonNil(t *testing.T) {
	a, b := NewEventID(), NewEventID()
	assert.False(t, a.IsNil())
	assert.NotEqual(t, a, b)
	assert.False(t, NewInsightID().IsNil())
}
