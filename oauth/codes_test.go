package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeStoreSingleUse(t *testing.T) {
	s := NewCodeStore()
	defer s.Stop()

	code := s.Create("client-1", []string{"mcp.read"})
	require.NotEmpty(t, code)

	clientID, scopes, ok := s.Consume(code)
	require.True(t, ok)
	assert.Equal(t, "client-1", clientID)
	assert.Equal(t, []string{"mcp.read"}, scopes)

	// A code is gone after one consume, success or not.
	_, _, ok = s.Consume(code)
	assert.False(t, ok)
}

func TestCodeStoreUnknownCode(t *testing.T) {
	s := NewCodeStore()
	defer s.Stop()

	_, _, ok := s.Consume("never-issued")
	assert.False(t, ok)
}

func TestCodeStoreCodesAreDistinct(t *testing.T) {
	s := NewCodeStore()
	defer s.Stop()

	a := s.Create("client-1", nil)
	b := s.Create("client-1", nil)
	assert.NotEqual(t, a, b)

	_, _, ok := s.Consume(a)
	assert.True(t, ok)
	_, _, ok = s.Consume(b)
	assert.True(t, ok)
}
