package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raihanm-dev/auth-service/internal/middleware"
	"github.com/raihanm-dev/auth-service/internal/models"
	"github.com/raihanm-dev/auth-service/internal/service"
	"github.com/raihanm-dev/auth-service/pkg/config"
	appErrors "github.com/raihanm-dev/auth-service/pkg/errors"
	"github.com/raihanm-dev/auth-service/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service       *service.AuthService
	metrics       *service.MetricsService
	accessMaxAge  int
	refreshMaxAge int
	secureCookies bool
}

// NewAuthHandler creates a new handler. Cookie lifetimes follow the token
// lifetimes from cfg.
func NewAuthHandler(svc *service.AuthService, metrics *service.MetricsService, cfg config.JWTConfig, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		service:       svc,
		metrics:       metrics,
		accessMaxAge:  int(cfg.AccessExpiration.Seconds()),
		refreshMaxAge: int(cfg.RefreshExpiration.Seconds()),
		secureCookies: secureCookies,
	}
}

// Register godoc
// @Summary Register a new account
// @Description Create a user account and establish a session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if h.metrics != nil {
			if appErrors.Is(err, appErrors.ErrEmailExists) {
				h.metrics.Registration("duplicate_email")
			} else {
				h.metrics.Registration("error")
			}
		}
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.Registration("ok")
		h.metrics.TokenIssued(models.TokenTypeAccess)
		h.metrics.TokenIssued(models.TokenTypeRefresh)
	}

	middleware.SetAuthCookie(c, middleware.AccessTokenCookie, res.AccessToken, h.accessMaxAge, h.secureCookies)
	middleware.SetAuthCookie(c, middleware.RefreshTokenCookie, res.RefreshToken, h.refreshMaxAge, h.secureCookies)

	response.Created(c, res)
}

// Refresh godoc
// @Summary Refresh an expired access token
// @Description Exchange an expired access token for a fresh one using the stored refresh token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest false "Expired access token; falls back to the Authorization header or session cookie"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := h.refreshCandidate(c)
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "access token required"))
		return
	}

	res, err := h.service.RefreshAccessToken(c.Request.Context(), token)
	if h.metrics != nil {
		h.metrics.SilentRefresh(err == nil)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.TokenIssued(models.TokenTypeAccess)
	}

	middleware.SetAuthCookie(c, middleware.AccessTokenCookie, res.AccessToken, h.accessMaxAge, h.secureCookies)

	response.JSON(c, http.StatusOK, res, nil)
}

// refreshCandidate finds the expired access token to renew: request body
// first, then Authorization header, then session cookie.
func (h *AuthHandler) refreshCandidate(c *gin.Context) string {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.AccessToken != "" {
		return req.AccessToken
	}
	if header := c.GetHeader("Authorization"); header != "" {
		return header
	}
	if cookie, err := c.Cookie(middleware.AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// Logout godoc
// @Summary Logout current session
// @Description Blacklist the access token and revoke the stored refresh token
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetHeader("Authorization")
	if token == "" {
		if cookie, err := c.Cookie(middleware.AccessTokenCookie); err == nil {
			token = cookie
		}
	}
	if token == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}

	middleware.ClearAuthCookies(c, h.secureCookies)

	response.NoContent(c)
}

// Me godoc
// @Summary Current user profile
// @Description Return the profile of the authenticated user
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	info, err := h.service.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, info, nil)
}
