package domain

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "agora/pkg/domain-errors"
)

const (
	validHexID = "8f433bb3431d04bcbbfb6a0bfa58dcb16dd6a1a4458dd5ec327b461ca4b724ab"
	zeroHexID  = "0000000000000000000000000000000000000000000000000000000000000000"
)

// TestParseRecordID_Invariants validates the parsing invariant:
// record ids are exactly 32 bytes of hex, never empty, never the zero digest.
func TestParseRecordID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseRecordID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseRecordID("not-a-record-id")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero digest", func(t *testing.T) {
		_, err := ParseRecordID(zeroHexID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid id and canonicalizes case", func(t *testing.T) {
		id, err := ParseRecordID(strings.ToUpper(validHexID))
		require.NoError(t, err)
		assert.Equal(t, RecordID(validHexID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety between the
// two key spaces. If this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	recordID := RecordID(validHexID)
	agentID := AgentID(validHexID)

	// These would fail to compile if the types were interchangeable:
	// var _ RecordID = agentID   // compile error
	// var _ AgentID = recordID   // compile error

	assert.Equal(t, recordID.String(), agentID.String(), "same hex, distinct types")
}

// TestParseID_SecurityInvariants validates trust-boundary parsing rules:
// parsing must reject attack vectors at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Attack vectors
		{"SQL injection attempt", "'; DROP TABLE records;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", validHexID[:32] + "\x00" + validHexID[33:], true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", validHexID[:32] + "​" + validHexID[32:], true},

		// Edge cases
		{"Empty string", "", true},
		{"Zero digest", zeroHexID, true},
		{"Whitespace only", "    ", true},
		{"Truncated", validHexID[:63], true},
		{"One char too long", validHexID + "a", true},
		{"Uppercase valid id", strings.ToUpper(validHexID), false},

		// Valid
		{"Valid lowercase id", validHexID, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecordID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures both id types share parsing
// behavior; inconsistent validation across key spaces would create holes.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	invalidInputs := []string{"", "invalid", zeroHexID, validHexID + "00"}

	t.Run("both accept valid hex", func(t *testing.T) {
		_, errRecord := ParseRecordID(validHexID)
		_, errAgent := ParseAgentID(validHexID)
		require.NoError(t, errRecord)
		require.NoError(t, errAgent)
	})

	for _, input := range invalidInputs {
		t.Run("both reject: "+input, func(t *testing.T) {
			_, errRecord := ParseRecordID(input)
			_, errAgent := ParseAgentID(input)
			require.Error(t, errRecord)
			require.Error(t, errAgent)
		})
	}
}

func TestAgentID_PublicKeyRoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	id := AgentIDFromKey(pub)
	back, err := id.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, pub, back)
}

func TestRecordIDFromBytes_PanicsOnWrongLength(t *testing.T) {
	assert.Panics(t, func() { RecordIDFromBytes([]byte{0x01, 0x02}) })
}
