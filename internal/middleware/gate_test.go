package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfchat/internal/config"
	"github.com/xxxsen/pdfchat/internal/pkg/jwt"
)

var testSecret = []byte("gate-secret")

func newGateEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Gate(testSecret, config.GateConfig{
		PagePrefixes:     []string{"/chat", "/dashboard"},
		APIPrefixes:      []string{"/api/pdf", "/api/chat", "/api/auth/current-user"},
		BypassPaths:      []string{"/api/demo"},
		UnauthorizedPath: "/unauthorized",
	}))
	ok := func(c *gin.Context) {
		uid, _ := c.Get(ContextUserIDKey)
		c.JSON(http.StatusOK, gin.H{"user": uid})
	}
	for _, p := range []string{"/chat", "/chat/:id", "/chatroom", "/dashboard", "/api/pdf/get-user-pdfs",
		"/api/chat", "/api/auth/current-user", "/api/demo/pdfs", "/api/auth/signin", "/"} {
		r.GET(p, ok)
	}
	return r
}

func signed(t *testing.T, ttl time.Duration) string {
	t.Helper()
	token, err := jwt.GenerateToken(jwt.Identity{ID: "u1", Name: "Ann", Email: "a@b.io", Role: "user"}, testSecret, ttl)
	require.NoError(t, err)
	return token
}

func TestGateRedirectsPagesWithoutToken(t *testing.T) {
	r := newGateEngine()
	for _, path := range []string{"/chat", "/chat/abc", "/dashboard"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusFound, w.Code, path)
		require.Contains(t, w.Header().Get("Location"), "/unauthorized?from=")
	}
}

func TestGateRejectsAPIWithJSON401(t *testing.T) {
	r := newGateEngine()
	tests := []struct {
		name   string
		cookie string
	}{
		{name: "missing"},
		{name: "garbage", cookie: "not-a-jwt"},
		{name: "expired", cookie: signed(t, -time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/pdf/get-user-pdfs", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, "Unauthorized", body["error"])
		})
	}
}

func TestGateAcceptsCookieAndBearer(t *testing.T) {
	r := newGateEngine()
	token := signed(t, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"user":"u1"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/chat", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGateBypassAndOpenPaths(t *testing.T) {
	r := newGateEngine()
	for _, path := range []string{"/api/demo/pdfs", "/api/auth/signin", "/chatroom", "/"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestJWTAuthRejectsForeignSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", JWTAuth([]byte("other")), func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: signed(t, time.Hour)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORSAllowlist(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
