package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Sup3r-secret!")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3r-secret!", hash)

	assert.True(t, CompareHashAndPassword(hash, "Sup3r-secret!"))
	assert.False(t, CompareHashAndPassword(hash, "sup3r-secret!"))
	assert.False(t, CompareHashAndPassword("", "Sup3r-secret!"))
	assert.False(t, CompareHashAndPassword("not-a-hash", "Sup3r-secret!"))
}
