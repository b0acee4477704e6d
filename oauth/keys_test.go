package oauth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyStoreIssueAndVerify(t *testing.T) {
	ks, err := NewKeyStore(MemoryKeyLocation)
	require.NoError(t, err)

	token, err := ks.Issue("client-1", []string{"mcp.read", "mcp.write"}, "http://localhost:8000", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ks.Verify(token, "http://localhost:8000")
	require.NoError(t, err)
	assert.Equal(t, "client-1", claims.ClientID)
	assert.Equal(t, []string{"mcp.read", "mcp.write"}, claims.Scopes)
	assert.Equal(t, "http://localhost:8000", claims.Audience)
	assert.True(t, claims.HasScope("mcp.read"))
	assert.True(t, claims.HasScope("mcp.write", "other"))
	assert.False(t, claims.HasScope("admin"))
}

func TestKeyStoreVerifyAudienceMismatch(t *testing.T) {
	ks, err := NewKeyStore(MemoryKeyLocation)
	require.NoError(t, err)

	token, err := ks.Issue("client-1", []string{"mcp.read"}, "http://localhost:8000", time.Hour)
	require.NoError(t, err)

	_, err = ks.Verify(token, "http://evil.example")
	assert.ErrorIs(t, err, ErrAudienceMismatch)

	// An empty expected audience skips the check.
	_, err = ks.Verify(token, "")
	assert.NoError(t, err)
}

func TestKeyStoreVerifyExpired(t *testing.T) {
	ks, err := NewKeyStore(MemoryKeyLocation)
	require.NoError(t, err)

	token, err := ks.Issue("client-1", []string{"mcp.read"}, "http://localhost:8000", -time.Minute)
	require.NoError(t, err)

	_, err = ks.Verify(token, "http://localhost:8000")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestKeyStoreVerifyGarbage(t *testing.T) {
	ks, err := NewKeyStore(MemoryKeyLocation)
	require.NoError(t, err)

	_, err = ks.Verify("not.a.token", "http://localhost:8000")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestKeyStoreVerifyForeignSignature(t *testing.T) {
	issuer, err := NewKeyStore(MemoryKeyLocation)
	require.NoError(t, err)
	verifier, err := NewKeyStore(MemoryKeyLocation)
	require.NoError(t, err)

	token, err := issuer.Issue("client-1", []string{"mcp.read"}, "http://localhost:8000", time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(token, "http://localhost:8000")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestKeyStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "signing.pem")

	first, err := NewKeyStore(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, err := first.Issue("client-1", []string{"mcp.read"}, "http://localhost:8000", time.Hour)
	require.NoError(t, err)

	// A restart reloads the same keypair, so tokens survive it.
	second, err := NewKeyStore(path)
	require.NoError(t, err)
	claims, err := second.Verify(token, "http://localhost:8000")
	require.NoError(t, err)
	assert.Equal(t, "client-1", claims.ClientID)
}

func TestKeyStoreCorruptKeyFileRegenerates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signing.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a pem file"), 0o600))

	ks, err := NewKeyStore(path)
	require.NoError(t, err)

	token, err := ks.Issue("client-1", []string{"mcp.read"}, "http://localhost:8000", time.Hour)
	require.NoError(t, err)
	_, err = ks.Verify(token, "http://localhost:8000")
	assert.NoError(t, err)

	// The regenerated key was written back out and is loadable.
	reloaded, err := NewKeyStore(path)
	require.NoError(t, err)
	_, err = reloaded.Verify(token, "http://localhost:8000")
	assert.NoError(t, err)
}

func TestPublicJWK(t *testing.T) {
	ks, err := NewKeyStore(MemoryKeyLocation)
	require.NoError(t, err)

	jwk := ks.PublicJWK()
	assert.Equal(t, "RSA", jwk.Kty)
	assert.Equal(t, "RS256", jwk.Alg)
	assert.Equal(t, "sig", jwk.Use)
	assert.NotEmpty(t, jwk.Kid)
	assert.NotEmpty(t, jwk.N)
	assert.NotEmpty(t, jwk.E)
}
