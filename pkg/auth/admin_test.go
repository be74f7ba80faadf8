package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jarfuel/waitlist-api/internal/log"
	"github.com/stretchr/testify/assert"
)

func newGuardedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AdminOnly(log.NewLoggerWithJSONOutput()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestAdminOnly_RejectsWithoutToken(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "sekrit")
	r := newGuardedRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminOnly_RejectsWrongToken(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "sekrit")
	r := newGuardedRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminOnly_AllowsCorrectToken(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "sekrit")
	r := newGuardedRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyAdminToken_FailsClosedWhenUnconfigured(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "")

	assert.False(t, VerifyAdminToken(""))
	assert.False(t, VerifyAdminToken("anything"))
}
