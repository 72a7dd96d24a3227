package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLocalPath(t *testing.T) {
	assert.True(t, LocalPath("/edit/3"))
	assert.True(t, LocalPath("/?page=2&status=alive"))
	assert.False(t, LocalPath(""))
	assert.False(t, LocalPath("https://evil.example/"))
	assert.False(t, LocalPath("//evil.example/"))
	assert.False(t, LocalPath(`/\evil.example`))
	assert.False(t, LocalPath("relative/path"))
}

func TestRequestIDAndLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestID(), Logger(zerolog.New(&buf)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "6F9619FF-8B86-D011-B42D-00CF4FC964FF")
	r.ServeHTTP(w, req)

	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00cf4fc964ff", w.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), `"request_id":"6f9619ff-8b86-d011-b42d-00cf4fc964ff"`)
	assert.Contains(t, buf.String(), `"status":200`)
}

func TestRequestIDReplacesForeignValues(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for _, supplied := range []string{"", "abc-123", strings.Repeat("a", 4096), "x\r\nSet-Cookie: a=b"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-ID", supplied)
		r.ServeHTTP(w, req)

		got := w.Header().Get("X-Request-ID")
		assert.NotEqual(t, supplied, got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err, "generated id %q", got)
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(Recovery(zerolog.New(&buf)))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestSameOrigin(t *testing.T) {
	r := gin.New()
	r.Use(SameOrigin([]string{"https://ward.example/"}))
	r.POST("/add", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := []struct {
		method, origin, referer string
		want                    int
	}{
		{http.MethodPost, "", "", http.StatusNoContent},
		{http.MethodPost, "http://registry.local", "", http.StatusNoContent},
		{http.MethodPost, "https://ward.example", "", http.StatusNoContent},
		{http.MethodPost, "", "http://registry.local/add", http.StatusNoContent},
		{http.MethodPost, "https://evil.example", "", http.StatusForbidden},
		{http.MethodPost, "null", "https://evil.example/page", http.StatusForbidden},
		{http.MethodPost, "not a url", "", http.StatusForbidden},
		{http.MethodGet, "https://evil.example", "", http.StatusNoContent},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		target := "/add"
		if tc.method == http.MethodGet {
			target = "/"
		}
		req := httptest.NewRequest(tc.method, "http://registry.local"+target, nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if tc.referer != "" {
			req.Header.Set("Referer", tc.referer)
		}
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "%s origin=%q referer=%q", tc.method, tc.origin, tc.referer)
	}
}
