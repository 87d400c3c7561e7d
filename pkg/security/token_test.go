package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSessionIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sid, err := GenerateSessionID()
		require.NoError(t, err)
		assert.False(t, seen[sid], "session id collision")
		seen[sid] = true
		assert.GreaterOrEqual(t, len(sid), 40)
		assert.NotContains(t, sid, "+")
		assert.NotContains(t, sid, "/")
	}
}

func TestGenerateSecurityCode(t *testing.T) {
	code, err := GenerateSecurityCode(6)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9', "non-digit %q in code", c)
	}
}

func TestGenerateSecurityCodeDefaultsLength(t *testing.T) {
	code, err := GenerateSecurityCode(0)
	require.NoError(t, err)
	assert.Len(t, code, 6)
}
