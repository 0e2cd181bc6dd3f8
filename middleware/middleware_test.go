package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	auth := forum.NewAuthService(nil, tokens)

	r := gin.New()
	r.GET("/me", AuthRequired(auth), func(c *gin.Context) {
		id := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"id": id.UserID, "username": id.Username})
	})

	w := serve(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized","code":40101}`, w.Body.String())

	w = serve(r, http.MethodGet, "/me", http.Header{"Authorization": {"Token abc"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40102")

	w = serve(r, http.MethodGet, "/me", http.Header{"Authorization": {"Bearer garbage"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid token","code":40103}`, w.Body.String())

	token, err := tokens.Generate(7, "alice")
	require.NoError(t, err)
	w = serve(r, http.MethodGet, "/me", http.Header{"Authorization": {"bearer " + token}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"username":"alice"}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/login", RateLimitMiddleware(4), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	// burst is half the per-minute budget
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/login", nil).Code)
	}
	w := serve(r, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "42901")
}

func TestRateLimitIsPerClient(t *testing.T) {
	l := newIPLimiters(1)
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestIDKey)) })

	w := serve(r, http.MethodGet, "/", nil)
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = serve(r, http.MethodGet, "/", http.Header{RequestIDHeader: {"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

type recordingViews struct {
	mu    sync.Mutex
	paths []string
}

func (v *recordingViews) RecordPageView(_ context.Context, path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paths = append(v.paths, path)
	return nil
}

func TestPageViewRecorder(t *testing.T) {
	views := &recordingViews{}
	r := gin.New()
	r.Use(PageViewRecorder(views))
	r.GET("/api/questions/:id", func(c *gin.Context) {
		if c.Param("id") == "404" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})
	r.GET("/api/questions", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.DELETE("/api/questions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/api/questions/1", nil)
	serve(r, http.MethodGet, "/api/questions/1", nil)
	serve(r, http.MethodGet, "/api/questions/404", nil)
	serve(r, http.MethodGet, "/api/questions", nil)
	serve(r, http.MethodDelete, "/api/questions/1", nil)
	serve(r, http.MethodGet, "/api/questions/007", nil)

	assert.Equal(t, []string{QuestionPath("1"), QuestionPath("1"), QuestionPath("7")}, views.paths)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/topics", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	serve(r, http.MethodGet, "/api/topics", nil)
	serve(r, http.MethodGet, "/nope", nil)

	w := serve(r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `qforum_http_requests_total{method="GET",route="/api/topics",status="200"} 1`)
	assert.Contains(t, body, `route="unmatched"`)
}
