package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/raihanm-dev/auth-service/internal/models"
)

func doWithRoles(t *testing.T, roles []string, authenticated bool, required ...string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/admin",
		func(c *gin.Context) {
			if authenticated {
				c.Set(ContextUserKey, &models.TokenClaims{UserID: 1, Roles: roles})
			}
		},
		RequireRoles(required...),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	return w.Code
}

func TestRequireRoles(t *testing.T) {
	assert.Equal(t, http.StatusOK, doWithRoles(t, []string{"admin"}, true, "admin"))
	assert.Equal(t, http.StatusOK, doWithRoles(t, []string{"user", "admin"}, true, "admin", "ops"))
	assert.Equal(t, http.StatusForbidden, doWithRoles(t, []string{"user"}, true, "admin"))
	assert.Equal(t, http.StatusForbidden, doWithRoles(t, nil, true, "admin"))
	assert.Equal(t, http.StatusUnauthorized, doWithRoles(t, nil, false, "admin"))
}
