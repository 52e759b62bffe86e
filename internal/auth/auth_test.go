package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", AuthMiddleware(secret), func(c *gin.Context) {
		c.String(http.StatusOK, Subject(c))
	})
	return r
}

func get(r *gin.Engine, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_DisabledWithoutSecret(t *testing.T) {
	w := get(newRouter(""), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token, err := IssueToken("s3cret", "scholar-ui", time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)

	w := get(newRouter("s3cret"), "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "scholar-ui", w.Body.String())
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	r := newRouter("s3cret")
	wrong, err := IssueToken("other", "x", 0)
	require.NoError(t, err)
	expired, err := IssueToken("s3cret", "x", time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":   "",
		"malformed": "Token abc",
		"wrong key": "Bearer " + wrong,
		"expired":   "Bearer " + expired,
	} {
		w := get(r, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED", name)
	}
}
