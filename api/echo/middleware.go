package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"vaultmcp/errors"
	"vaultmcp/oauth"
)

// ClaimsContextKey is where RequireScopes stores the validated token
// claims on the echo context.
const ClaimsContextKey = "oauth_claims"

// RequireScopes guards protected routes with bearer-token verification
// and scope enforcement. Any verification failure is a plain 401; the
// subtype is not distinguished to the caller. skipScopeCheck disables
// only the scope-intersection check, for callers that omit scopes
// entirely; signature, audience and expiry are always enforced.
func RequireScopes(keys *oauth.KeyStore, audience string, required []string, skipScopeCheck bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, errors.NewInvalidToken("missing bearer token"))
			}

			claims, err := keys.Verify(parts[1], audience)
			if err != nil {
				log.Debug().Err(err).Msg("bearer token rejected")
				return c.JSON(http.StatusUnauthorized, errors.NewInvalidToken("invalid token"))
			}

			if !skipScopeCheck && !claims.HasScope(required...) {
				log.Warn().
					Str("client_id", claims.ClientID).
					Strs("token_scopes", claims.Scopes).
					Strs("required_scopes", required).
					Msg("token lacks required scope")
				return c.JSON(http.StatusForbidden, errors.NewInsufficientScope("token lacks required scope"))
			}

			c.Set(ClaimsContextKey, claims)
			return next(c)
		}
	}
}
