package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Cookie names used for browser sessions.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// SetAuthCookie writes an httponly SameSite=Lax session cookie holding the
// bare token. The "Bearer " transport prefix is stripped first: a space is
// not a valid cookie-value octet and gin would percent-escape it. maxAge is
// in seconds.
func SetAuthCookie(c *gin.Context, name, value string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, strings.TrimPrefix(value, "Bearer "), maxAge, "/", "", secure, true)
}

// ClearAuthCookies expires both session cookies.
func ClearAuthCookies(c *gin.Context, secure bool) {
	SetAuthCookie(c, AccessTokenCookie, "", -1, secure)
	SetAuthCookie(c, RefreshTokenCookie, "", -1, secure)
}
