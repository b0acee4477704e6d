//nolint:varnamelen
package echoapi

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"vaultmcp/errors"
	"vaultmcp/oauth"
)

const accessTokenTTL = time.Hour

// Config carries the endpoint-level settings of the authorization server.
type Config struct {
	// ApprovalSecret is the shared operator secret required to approve an
	// authorization request. When empty, client registration is disabled.
	ApprovalSecret string
	// ScopesSupported is advertised in the discovery metadata.
	ScopesSupported []string
}

// OAuth2API holds the authorization-server endpoints and their
// dependencies. All state lives in the injected stores; handlers perform
// boundary validation only.
type OAuth2API struct {
	keys    *oauth.KeyStore
	clients *oauth.ClientRegistry
	codes   *oauth.CodeStore
	cfg     Config
}

// NewOAuth2API wires the endpoint handlers to their stores.
func NewOAuth2API(keys *oauth.KeyStore, clients *oauth.ClientRegistry, codes *oauth.CodeStore, cfg Config) *OAuth2API {
	if len(cfg.ScopesSupported) == 0 {
		cfg.ScopesSupported = []string{"mcp.read", "mcp.write"}
	}
	return &OAuth2API{
		keys:    keys,
		clients: clients,
		codes:   codes,
		cfg:     cfg,
	}
}

// RegisterRoutes registers the OAuth2 routes. Exact paths matter for
// protocol compatibility with OAuth-aware clients.
func (oa *OAuth2API) RegisterRoutes(e *echo.Echo) {
	e.GET("/.well-known/oauth-authorization-server", oa.MetadataHandler)
	e.GET("/jwks.json", oa.JWKSHandler)
	e.POST("/oauth/register", oa.RegisterHandler)
	e.GET("/oauth/authorize", oa.AuthorizeFormHandler)
	e.POST("/oauth/authorize", oa.AuthorizeDecisionHandler)
	e.POST("/oauth/token", oa.TokenHandler)
}

// baseURL computes this server's identity from the current request rather
// than configuration, so discovery and token audiences follow whatever
// host the client actually reached.
func baseURL(c echo.Context) string {
	return c.Scheme() + "://" + c.Request().Host
}

type registerRequest struct {
	ClientName   string   `json:"client_name"`
	RedirectURIs []string `json:"redirect_uris"`
}

// RegisterHandler creates a new OAuth client. The plaintext secret in the
// response is shown exactly once; only its hash survives.
func (oa *OAuth2API) RegisterHandler(c echo.Context) error {
	if oa.cfg.ApprovalSecret == "" {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("registration disabled"))
	}

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("malformed registration body"))
	}

	creds, err := oa.clients.Register(c.Request().Context(), req.ClientName, req.RedirectURIs)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest(err.Error()))
	}

	return c.JSON(http.StatusOK, creds)
}

// The form carries the request parameters verbatim; html/template escapes
// every value before it is embedded in markup.
var approvalFormTmpl = template.Must(template.New("approval").Parse(`<!doctype html>
<html>
<body>
<p>Client {{.ClientID}} requests access with scope "{{.Scope}}".</p>
<form method="post" action="/oauth/authorize">
<input type="password" name="secret" placeholder="Enter approval secret"/>
<input type="hidden" name="client_id" value="{{.ClientID}}"/>
<input type="hidden" name="redirect_uri" value="{{.RedirectURI}}"/>
<input type="hidden" name="scope" value="{{.Scope}}"/>
{{if .State}}<input type="hidden" name="state" value="{{.State}}"/>{{end}}
<button type="submit">Approve</button>
</form>
</body>
</html>
`))

type approvalFormData struct {
	ClientID    string
	RedirectURI string
	Scope       string
	State       string
}

// AuthorizeFormHandler renders the interactive approval step. An unknown
// client is a client error, never a redirect.
func (oa *OAuth2API) AuthorizeFormHandler(c echo.Context) error {
	clientID := c.QueryParam("client_id")
	if _, ok := oa.clients.Get(clientID); !ok {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidClient("unknown client_id"))
	}

	var buf bytes.Buffer
	err := approvalFormTmpl.Execute(&buf, approvalFormData{
		ClientID:    clientID,
		RedirectURI: c.QueryParam("redirect_uri"),
		Scope:       c.QueryParam("scope"),
		State:       c.QueryParam("state"),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to render approval form")
		return c.JSON(http.StatusInternalServerError, errors.NewServerError("failed to render approval form"))
	}

	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// AuthorizeDecisionHandler processes the approval decision. On success it
// mints a one-time code and redirects the user agent back to the client.
// The submitted redirect_uri must match the client's registered set
// exactly before any redirect is issued.
func (oa *OAuth2API) AuthorizeDecisionHandler(c echo.Context) error {
	secret := c.FormValue("secret")
	clientID := c.FormValue("client_id")
	redirectURI := c.FormValue("redirect_uri")
	scope := c.FormValue("scope")
	state := c.FormValue("state")

	if oa.cfg.ApprovalSecret == "" || secret != oa.cfg.ApprovalSecret {
		log.Warn().Str("client_id", clientID).Msg("authorization denied: bad approval secret")
		return c.HTML(http.StatusUnauthorized, "Invalid secret")
	}
	if _, ok := oa.clients.Get(clientID); !ok {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidClient("unknown client_id"))
	}
	if !oa.clients.ValidateRedirectURI(clientID, redirectURI) {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("redirect_uri is not registered for this client"))
	}

	code := oa.codes.Create(clientID, strings.Fields(scope))

	target, err := url.Parse(redirectURI)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("malformed redirect_uri"))
	}
	params := target.Query()
	params.Set("code", code)
	if state != "" {
		params.Set("state", state)
	}
	target.RawQuery = params.Encode()

	return c.Redirect(http.StatusFound, target.String())
}

type tokenRequest struct {
	GrantType    string `json:"grant_type" form:"grant_type"`
	Code         string `json:"code" form:"code"`
	ClientID     string `json:"client_id" form:"client_id"`
	ClientSecret string `json:"client_secret" form:"client_secret"`
}

// TokenResponse is the successful token-exchange body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// TokenHandler exchanges a one-time code plus client credentials for a
// signed bearer token. The code is consumed before the credential check;
// a failed exchange burns it. Wrong secret and client/code mismatch
// return the same 401 so the response leaks neither.
func (oa *OAuth2API) TokenHandler(c echo.Context) error {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEApplicationJSON) &&
		!strings.HasPrefix(contentType, echo.MIMEApplicationForm) {
		return c.JSON(http.StatusUnsupportedMediaType, errors.NewInvalidRequest("unsupported content type"))
	}

	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("malformed token request"))
	}

	if req.GrantType != "authorization_code" {
		return c.JSON(http.StatusBadRequest, errors.NewUnsupportedGrantType())
	}

	grantClientID, scopes, ok := oa.codes.Consume(req.Code)
	if !ok {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidGrant("unknown or already used code"))
	}

	if req.ClientID == "" || req.ClientSecret == "" {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("missing client credentials"))
	}
	if req.ClientID != grantClientID || !oa.clients.VerifySecret(req.ClientID, req.ClientSecret) {
		return c.JSON(http.StatusUnauthorized, errors.NewInvalidClient("invalid client credentials"))
	}

	audience := baseURL(c)
	accessToken, err := oa.keys.Issue(grantClientID, scopes, audience, accessTokenTTL)
	if err != nil {
		log.Error().Err(err).Str("client_id", grantClientID).Msg("failed to issue access token")
		return c.JSON(http.StatusInternalServerError, errors.NewServerError("failed to issue token"))
	}

	log.Info().
		Str("client_id", grantClientID).
		Str("audience", audience).
		Strs("scopes", scopes).
		Msg("access token issued")

	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int(accessTokenTTL.Seconds()),
		Scope:       strings.Join(scopes, " "),
	})
}
