package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func doFrom(r *gin.Engine, remote string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/hook", nil)
	req.RemoteAddr = remote
	r.ServeHTTP(w, req)
	return w
}

func TestIPAllowList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()

	r := gin.New()
	r.POST("/hook",
		IPAllowList(log, []string{"185.71.76.0/27", "77.75.156.11/32", "not-a-cidr"}),
		func(c *gin.Context) { c.Status(http.StatusNoContent) })

	require.Equal(t, http.StatusNoContent, doFrom(r, "185.71.76.5:1234").Code)
	require.Equal(t, http.StatusNoContent, doFrom(r, "77.75.156.11:443").Code)

	w := doFrom(r, "10.0.0.1:1234")
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "INVALID_SIGNATURE")

	require.Equal(t, http.StatusForbidden, doFrom(r, "185.71.76.40:1234").Code)
}

func TestIPAllowListEmptyAllowsAll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/hook",
		IPAllowList(zap.NewNop().Sugar(), nil),
		func(c *gin.Context) { c.Status(http.StatusNoContent) })

	require.Equal(t, http.StatusNoContent, doFrom(r, "10.0.0.1:1234").Code)
}
