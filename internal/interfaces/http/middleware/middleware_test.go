package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testTokens() *auth.JWTManager {
	return auth.NewJWTManager(config.JWTConfig{
		Secret:            "a-very-long-test-secret-for-signing-tokens",
		AccessTokenExpiry: time.Hour,
	}, "test")
}

func TestAuthMiddleware(t *testing.T) {
	tokens := testTokens()
	router := gin.New()
	router.GET("/me", AuthMiddleware(tokens), func(c *gin.Context) {
		id, _ := GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "admin": IsAdminFromContext(c)})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := tokens.GenerateAccessToken(7, "a@example.com", true)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"admin":true}`, w.Body.String())
}

func TestAdminMiddlewareRejectsShoppers(t *testing.T) {
	tokens := testTokens()
	router := gin.New()
	router.GET("/admin", AuthMiddleware(tokens), AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	token, err := tokens.GenerateAccessToken(3, "s@example.com", false)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOptionalAuthLetsGuestsThrough(t *testing.T) {
	router := gin.New()
	router.GET("/cart", OptionalAuthMiddleware(testTokens()), func(c *gin.Context) {
		_, ok := GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user": ok})
	})

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer expired-or-bogus")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":false}`, w.Body.String())
}

func TestSessionIssuesAndReusesCookie(t *testing.T) {
	router := gin.New()
	router.GET("/s", Session(time.Hour, false), func(c *gin.Context) {
		c.String(http.StatusOK, GetSessionIDFromContext(c))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/s", nil))
	require.Equal(t, http.StatusOK, w.Code)
	issued := w.Body.String()
	require.NotEmpty(t, issued)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, issued, cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/s", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, issued, w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}

func TestTimeoutSetsDeadline(t *testing.T) {
	router := gin.New()
	router.GET("/t", Timeout(time.Second), func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"deadline": ok})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.JSONEq(t, `{"deadline":true}`, w.Body.String())
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"http://localhost:3000", "*.example.com"}

	assert.True(t, isOriginAllowed("http://localhost:3000", allowed))
	assert.True(t, isOriginAllowed("https://shop.example.com", allowed))
	assert.False(t, isOriginAllowed("https://evilexample.com", allowed))
	assert.False(t, isOriginAllowed("http://localhost:4000", allowed))
}

func TestRequestIDEchoesHeader(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/r", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/r", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestSecurityHeadersFollowConfig(t *testing.T) {
	serve := func(cfg config.SecurityConfig) http.Header {
		router := gin.New()
		router.Use(SecurityHeaders(cfg))
		router.GET("/cart", func(c *gin.Context) { c.Status(http.StatusOK) })
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))
		return w.Header()
	}

	h := serve(config.SecurityConfig{
		FrameOptions:          "SAMEORIGIN",
		ContentSecurityPolicy: "default-src 'none'",
		ServerName:            "shop",
		HSTSMaxAge:            24 * time.Hour,
		NoStore:               true,
	})
	assert.Equal(t, "SAMEORIGIN", h.Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'none'", h.Get("Content-Security-Policy"))
	assert.Equal(t, "shop", h.Get("Server"))
	assert.Equal(t, "max-age=86400; includeSubDomains", h.Get("Strict-Transport-Security"))
	assert.Equal(t, "no-store", h.Get("Cache-Control"))
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))

	h = serve(config.SecurityConfig{})
	assert.Empty(t, h.Get("X-Frame-Options"))
	assert.Empty(t, h.Get("Server"))
	assert.Empty(t, h.Get("Strict-Transport-Security"))
	assert.Empty(t, h.Get("Cache-Control"))
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
}
