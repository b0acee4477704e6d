package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultmcp/oauth"
)

const guardAudience = "http://localhost:8000"

func newGuardedServer(t *testing.T, skipScopeCheck bool) (*echo.Echo, *oauth.KeyStore) {
	t.Helper()

	keys, err := oauth.NewKeyStore(oauth.MemoryKeyLocation)
	require.NoError(t, err)

	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		claims, ok := c.Get(ClaimsContextKey).(*oauth.TokenClaims)
		require.True(t, ok)
		return c.String(http.StatusOK, claims.ClientID)
	}, RequireScopes(keys, guardAudience, []string{"mcp.read", "mcp.write"}, skipScopeCheck))
	return e, keys
}

func callProtected(e *echo.Echo, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireScopesAcceptsValidToken(t *testing.T) {
	e, keys := newGuardedServer(t, false)

	token, err := keys.Issue("client-1", []string{"mcp.read"}, guardAudience, time.Hour)
	require.NoError(t, err)

	rec := callProtected(e, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "client-1", rec.Body.String())

	// Scheme comparison is case-insensitive.
	rec = callProtected(e, "bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireScopesMissingOrMalformedHeader(t *testing.T) {
	e, _ := newGuardedServer(t, false)

	for _, header := range []string{"", "Bearer", "Basic dXNlcjpwYXNz", "Token abc"} {
		rec := callProtected(e, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header: %q", header)
		assert.Contains(t, rec.Body.String(), "invalid_token")
	}
}

func TestRequireScopesRejectsBadTokens(t *testing.T) {
	e, keys := newGuardedServer(t, false)

	expired, err := keys.Issue("client-1", []string{"mcp.read"}, guardAudience, -time.Minute)
	require.NoError(t, err)
	wrongAudience, err := keys.Issue("client-1", []string{"mcp.read"}, "http://other.example", time.Hour)
	require.NoError(t, err)

	foreign, err := oauth.NewKeyStore(oauth.MemoryKeyLocation)
	require.NoError(t, err)
	forged, err := foreign.Issue("client-1", []string{"mcp.read"}, guardAudience, time.Hour)
	require.NoError(t, err)

	// All failure modes collapse to the same 401.
	for name, token := range map[string]string{
		"garbage":        "not.a.jwt",
		"expired":        expired,
		"wrong audience": wrongAudience,
		"forged":         forged,
	} {
		rec := callProtected(e, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.Contains(t, rec.Body.String(), "invalid_token", name)
	}
}

func TestRequireScopesInsufficientScope(t *testing.T) {
	e, keys := newGuardedServer(t, false)

	token, err := keys.Issue("client-1", []string{"other.scope"}, guardAudience, time.Hour)
	require.NoError(t, err)

	rec := callProtected(e, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient_scope")
}

func TestRequireScopesBypassSkipsOnlyScopeCheck(t *testing.T) {
	e, keys := newGuardedServer(t, true)

	scopeless, err := keys.Issue("client-1", nil, guardAudience, time.Hour)
	require.NoError(t, err)
	rec := callProtected(e, "Bearer "+scopeless)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Signature, audience and expiry are still enforced.
	expired, err := keys.Issue("client-1", nil, guardAudience, -time.Minute)
	require.NoError(t, err)
	rec = callProtected(e, "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = callProtected(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
