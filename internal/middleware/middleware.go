package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
	"go.uber.org/zap"
)

// Logger request log middleware.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
			zap.Duration("latency", latency),
			zap.String("request_id", c.GetString("request_id")),
		}

		if userID := c.GetString("user_id"); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}

		if status >= 500 {
			logger.Error("Server error", fields...)
		} else if status >= 400 {
			logger.Warn("Client error", fields...)
		} else {
			logger.Info("Request", fields...)
		}
	}
}

// CORS cross-origin middleware.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestID propagates or assigns X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWTClaims JWT claims
type JWTClaims struct {
	UserID string   `json:"uid"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	Type   string   `json:"type"`
	jwt.RegisteredClaims
}

// JWTAuth validates an access token from the Authorization header or the
// token query parameter (SSE clients cannot set headers).
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    40100,
				"message": "Authorization is required",
			})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})

		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    40102,
				"message": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok || !token.Valid || claims.UserID == "" || claims.Type == TokenTypeRefresh {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    40103,
				"message": "Invalid token claims",
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_name", claims.Name)
		c.Set("user_email", claims.Email)
		c.Set("roles", claims.Roles)
		c.Set("claims", claims)
		c.Next()
	}
}

// ActorResolver loads the current state of an authenticated user.
type ActorResolver interface {
	ResolveRoles(ctx context.Context, userID string) (roles []string, active bool, err error)
}

// LoadActor replaces the token roles with the user's current roles and
// rejects deactivated accounts.
func LoadActor(resolver ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRoles, active, err := resolver.ResolveRoles(c.Request.Context(), c.GetString("user_id"))
		if err != nil || !active {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    40104,
				"message": "User is inactive or no longer exists",
			})
			c.Abort()
			return
		}
		c.Set("roles", userRoles)
		c.Next()
	}
}

func contextRoles(c *gin.Context) []string {
	v, _ := c.Get("roles")
	r, _ := v.([]string)
	return r
}

// RequireRole allows holders of role; admin passes every RequireRole.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if roles.Has(contextRoles(c), role) {
			c.Next()
			return
		}
		c.JSON(http.StatusForbidden, gin.H{
			"code":    40312,
			"message": "Role required: " + role,
		})
		c.Abort()
	}
}

// RequireStrictRole allows only real holders of role.
func RequireStrictRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if roles.HasStrict(contextRoles(c), role) {
			c.Next()
			return
		}
		c.JSON(http.StatusForbidden, gin.H{
			"code":    40313,
			"message": "Role required: " + role,
		})
		c.Abort()
	}
}
