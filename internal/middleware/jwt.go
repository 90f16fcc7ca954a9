package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/raihanm-dev/auth-service/internal/service"
	appErrors "github.com/raihanm-dev/auth-service/pkg/errors"
	"github.com/raihanm-dev/auth-service/pkg/response"
)

// ContextUserKey is the gin context key storing token claims.
const ContextUserKey = "currentUser"

// NewAccessTokenHeader carries a silently renewed access token back to
// clients that authenticate via the Authorization header instead of cookies.
const NewAccessTokenHeader = "X-New-Access-Token"

// extractToken pulls the access token from the Authorization header or the
// session cookie. Returns "" when neither carries one.
func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return header
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// JWT protects routes by requiring a valid, non-blacklisted access token.
// When the token is merely expired the middleware attempts a silent refresh:
// on success the renewed token replaces the session cookie, is echoed in the
// X-New-Access-Token header, and the request proceeds without interruption.
func JWT(tokens *service.TokenService, metrics *service.MetricsService, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		ctx := c.Request.Context()

		if tokens.IsTokenBlacklisted(ctx, token) {
			if metrics != nil {
				metrics.BlacklistHit()
			}
			response.Error(c, appErrors.Clone(appErrors.ErrTokenInvalid, "token has been revoked"))
			c.Abort()
			return
		}

		claims, err := tokens.VerifyToken(token)
		if err == nil {
			c.Set(ContextUserKey, claims)
			c.Next()
			return
		}

		if !appErrors.Is(err, appErrors.ErrTokenExpired) {
			response.Error(c, err)
			c.Abort()
			return
		}

		renewed, ok := tokens.AutoRefreshAccessToken(ctx, token)
		if metrics != nil {
			metrics.SilentRefresh(ok)
		}
		if !ok {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, verifyErr := tokens.VerifyToken(renewed)
		if verifyErr != nil {
			response.Error(c, verifyErr)
			c.Abort()
			return
		}

		SetAuthCookie(c, AccessTokenCookie, renewed, int(tokens.AccessTTL().Seconds()), secureCookies)
		c.Header(NewAccessTokenHeader, renewed)

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}
