package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ekyc/pkg/domain-errors"
)

// TestParseID_Invariants validates the parsing invariant:
// "IDs must be non-empty, bounded, printable strings"
func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseClientID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts ledger style ids", func(t *testing.T) {
		clientID, err := ParseClientID("CLIENT1")
		require.NoError(t, err)
		assert.Equal(t, ClientID("CLIENT1"), clientID)

		fiID, err := ParseInstitutionID("FI1")
		require.NoError(t, err)
		assert.Equal(t, InstitutionID("FI1"), fiID)
	})

	t.Run("accepts certificate style principals", func(t *testing.T) {
		_, err := ParseInstitutionID("x509::CN=fi2.example.com,O=FI2::CN=ca.example.com")
		require.NoError(t, err)
	})
}

// TestParseID_SecurityInvariants validates trust boundary rules. A NUL byte is
// the composite key delimiter, so it must never survive parsing.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Null byte injection", "CLIENT1\x00FI2", true},
		{"Leading null byte", "\x00client~institution", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "CLIENT\u200b1", true},
		{"Embedded space", "CLIENT 1", true},
		{"Whitespace only", "   ", true},
		{"Invalid UTF-8", string([]byte{0xff, 0xfe}), true},
		{"Valid", "FI-2.branch_7", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInstitutionID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures both ID types share parsing rules.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	for _, input := range []string{"", "CLIENT1", "bad\tid", "FI9"} {
		_, errClient := ParseClientID(input)
		_, errFI := ParseInstitutionID(input)
		assert.Equal(t, errClient == nil, errFI == nil, "input %q", input)
	}
}

func TestParseDocType(t *testing.T) {
	d, err := ParseDocType("client")
	require.NoError(t, err)
	assert.Equal(t, DocTypeClient, d)

	_, err = ParseDocType("fi")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseDocType("")
	require.Error(t, err)
}
