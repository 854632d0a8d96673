package helpers

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		tok, err := GenerateToken(TokenSize256)
		require.NoError(t, err)
		assert.Len(t, tok, 43)
		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		assert.Len(t, raw, TokenSize256)
		assert.False(t, seen[tok], "tokens must not repeat")
		seen[tok] = true
	}

	_, err := GenerateToken(0)
	assert.Error(t, err)
}
