package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/uthejd-slx/procura-backend/internal/config"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	JWTSecret = "procura-test-secret"
	Password  = "correct-horse-battery"
)

// SetupTestDB opens a fresh sqlite database in the test's temp dir and
// migrates every procurement table.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "procura.db") +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(entity.All()...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SetupRedis starts a miniredis server for the test.
func SetupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

// TestConfig defaults used by service and handler tests.
func TestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode, FrontendURL: "http://frontend.test"},
		JWT: config.JWTConfig{
			Secret:             JWTSecret,
			AccessTokenExpire:  30 * time.Minute,
			RefreshTokenExpire: 24 * time.Hour,
			Issuer:             "procura-test",
		},
		Storage:       config.StorageConfig{AttachmentMaxMB: 1},
		Workflow:      config.WorkflowConfig{MaxDraftsPerUser: 15, PONumberPrefix: "PO-", PONumberPadding: 5},
		Notifications: config.NotificationsConfig{RetentionDays: 90},
		RateLimit:     config.RateLimitConfig{AuthPerMinute: 600, AuthBurst: 100},
	}
}

// SetupRouter creates a gin router in test mode.
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// SeedUser creates an active user. The admin role makes it a superuser; other
// roles are stored on the profile.
func SeedUser(t *testing.T, db *gorm.DB, email string, userRoles ...string) *entity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &entity.User{
		ID:           entity.NewID(),
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	var stored []string
	for _, r := range userRoles {
		if r == roles.Admin {
			user.IsSuperuser = true
			continue
		}
		stored = append(stored, r)
	}
	user.Profile = &entity.Profile{
		UserID:                    user.ID,
		DisplayName:               strings.Split(email, "@")[0],
		NotificationsEmailEnabled: true,
		Roles:                     entity.StringList(stored),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// GenerateTestToken signs an access token for user.
func GenerateTestToken(user *entity.User) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"uid":   user.ID,
		"name":  user.DisplayName(),
		"email": user.Email,
		"roles": roles.UserRoles(user.IsSuperuser, user.ProfileRoles()),
		"type":  "access",
		"iss":   "procura-test",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"jti":   uuid.NewString(),
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	return token
}

// DoRequest executes a JSON request against the test router.
func DoRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// DoUpload posts a multipart form with one file under "file".
func DoUpload(r http.Handler, path, fileName string, content []byte, fields map[string]string, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	fw, _ := mw.CreateFormFile("file", fileName)
	fw.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse decodes the response envelope.
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// Data returns the envelope's data object, failing when it is not an object.
func Data(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	resp := ParseResponse(w)
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, fmt.Sprintf("no data object in %s", w.Body.String()))
	return data
}
