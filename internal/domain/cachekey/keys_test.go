package cachekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "account:42", Account("42"))
	assert.Equal(t, "account:email:alice@example.com", AccountByEmail(" Alice@Example.com"))
	assert.Equal(t, "ratelimit:login:ip:1.2.3.4", RateLimit("login", "ip:1.2.3.4"))
}
