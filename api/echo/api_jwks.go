package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"vaultmcp/oauth"
)

// ServerMetadata is the RFC 8414 authorization-server metadata document.
type ServerMetadata struct {
	Issuer                string   `json:"issuer"`
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	TokenEndpoint         string   `json:"token_endpoint"`
	RegistrationEndpoint  string   `json:"registration_endpoint"`
	JwksURI               string   `json:"jwks_uri"`
	ScopesSupported       []string `json:"scopes_supported"`
}

// MetadataHandler serves the discovery document. Endpoint URLs are
// computed from the request's base URL, not hardcoded.
func (oa *OAuth2API) MetadataHandler(c echo.Context) error {
	base := baseURL(c)
	return c.JSON(http.StatusOK, ServerMetadata{
		Issuer:                base,
		AuthorizationEndpoint: base + "/oauth/authorize",
		TokenEndpoint:         base + "/oauth/token",
		RegistrationEndpoint:  base + "/oauth/register",
		JwksURI:               base + "/jwks.json",
		ScopesSupported:       oa.cfg.ScopesSupported,
	})
}

// JWKSHandler serves the public verification key set.
func (oa *OAuth2API) JWKSHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, oauth.JSONWebKeySet{
		Keys: []oauth.JSONWebKey{oa.keys.PublicJWK()},
	})
}
