package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raihanm-dev/auth-service/internal/repository"
	"github.com/raihanm-dev/auth-service/pkg/response"
)

// AdminHandler exposes operational maintenance endpoints. Routes using it
// must sit behind the JWT and role middleware.
type AdminHandler struct {
	store repository.TokenStore
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(store repository.TokenStore) *AdminHandler {
	return &AdminHandler{store: store}
}

// CleanupTokens godoc
// @Summary Sweep expired token records
// @Description Remove lapsed blacklist entries and refresh token records ahead of the scheduled sweep
// @Tags Administration
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/tokens/cleanup [post]
func (h *AdminHandler) CleanupTokens(c *gin.Context) {
	ctx := c.Request.Context()

	blacklist := h.store.CleanupExpiredTokens(ctx)
	refresh := h.store.CleanupExpiredRefreshTokens(ctx)

	response.JSON(c, http.StatusOK, gin.H{
		"blacklist_removed": blacklist,
		"refresh_removed":   refresh,
	}, nil)
}
