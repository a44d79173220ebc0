package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, inbound string) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	var fromGin, fromCtx string
	router.GET("/ping", func(c *gin.Context) {
		fromGin = Value(c)
		fromCtx = FromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if inbound != "" {
		req.Header.Set(Header, inbound)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w, fromGin, fromCtx
}

func TestMiddlewareKeepsWellFormedInboundID(t *testing.T) {
	w, fromGin, fromCtx := serve(t, "edge-7f3a.2:1")
	assert.Equal(t, "edge-7f3a.2:1", w.Header().Get(Header))
	assert.Equal(t, "edge-7f3a.2:1", fromGin)
	assert.Equal(t, fromGin, fromCtx)
}

func TestMiddlewareReplacesMissingOrUnsafeID(t *testing.T) {
	for _, inbound := range []string{"", "bad id\nforged=1", strings.Repeat("a", 65)} {
		w, fromGin, fromCtx := serve(t, inbound)
		_, err := uuid.Parse(fromGin)
		require.NoError(t, err, inbound)
		assert.Equal(t, fromGin, w.Header().Get(Header))
		assert.Equal(t, fromGin, fromCtx)
	}
}
