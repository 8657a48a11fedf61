package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

type fakeResolver struct {
	roles  []string
	active bool
	err    error
}

func (f fakeResolver) ResolveRoles(ctx context.Context, userID string) ([]string, bool, error) {
	return f.roles, f.active, f.err
}

func signToken(t *testing.T, typ string, ttl time.Duration) string {
	t.Helper()
	claims := JWTClaims{
		UserID: "u-1",
		Email:  "u1@example.com",
		Roles:  []string{"employee"},
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "roles": contextRoles(c)})
	})
	r.GET("/x", handlers...)
	return r
}

func do(r http.Handler, url, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newRouter(JWTAuth(testSecret))

	assert.Equal(t, http.StatusUnauthorized, do(r, "/x", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/x", "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/x", signToken(t, TokenTypeAccess, -time.Minute)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/x", signToken(t, TokenTypeRefresh, time.Hour)).Code)

	w := do(r, "/x", signToken(t, TokenTypeAccess, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"u-1"`)

	// query token for event streams
	w = do(r, "/x?token="+signToken(t, TokenTypeAccess, time.Hour), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoadActorReplacesRoles(t *testing.T) {
	token := signToken(t, TokenTypeAccess, time.Hour)

	r := newRouter(JWTAuth(testSecret), LoadActor(fakeResolver{roles: []string{"approver"}, active: true}))
	w := do(r, "/x", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"roles":["approver"]`)

	r = newRouter(JWTAuth(testSecret), LoadActor(fakeResolver{active: false}))
	w = do(r, "/x", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40104")

	r = newRouter(JWTAuth(testSecret), LoadActor(fakeResolver{err: errors.New("gone")}))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/x", token).Code)
}

func TestRequireRole(t *testing.T) {
	token := signToken(t, TokenTypeAccess, time.Hour)
	cases := []struct {
		name   string
		roles  []string
		strict bool
		want   int
	}{
		{"holder", []string{"procurement"}, false, http.StatusOK},
		{"admin passes", []string{"admin"}, false, http.StatusOK},
		{"missing", []string{"employee"}, false, http.StatusForbidden},
		{"strict holder", []string{"procurement"}, true, http.StatusOK},
		{"strict admin", []string{"admin"}, true, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			guard := RequireRole("procurement")
			if tc.strict {
				guard = RequireStrictRole("procurement")
			}
			r := newRouter(JWTAuth(testSecret), LoadActor(fakeResolver{roles: tc.roles, active: true}), guard)
			assert.Equal(t, tc.want, do(r, "/x", token).Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	r := newRouter(RateLimit(NewIPRateLimiter(1, 2)))

	assert.Equal(t, http.StatusOK, do(r, "/x", "").Code)
	assert.Equal(t, http.StatusOK, do(r, "/x", "").Code)
	w := do(r, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "42900")
}

func TestRequestIDPropagates(t *testing.T) {
	r := newRouter(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))

	w = do(r, "/x", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
