package httpgin

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/dirabus/internal/auth"
	"github.com/kirinyoku/dirabus/internal/domain"
	ua "github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
)

const (
	requestIDKey = "request_id"
	principalKey = "principal"
)

// TokenValidator resolves a bearer token to its claims.
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set(requestIDKey, reqID)

		c.Next()
	}
}

func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Idempotency-Key",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"ETag",
			"Cache-Control",
			"Retry-After",
			"Idempotency-Key",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}

	return cors.New(cfg)
}

// LoggingMiddleware logs one entry per request once the handler chain is done.
func LoggingMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"bytes_out":  c.Writer.Size(),
			"request_id": c.GetString(requestIDKey),
		}

		if agentStr := c.Request.UserAgent(); agentStr != "" {
			agent := ua.New(agentStr)
			browser, version := agent.Browser()
			fields["user_agent"] = agentStr
			fields["browser"] = strings.TrimSpace(browser + " " + version)
			fields["os"] = agent.OS()
			fields["mobile"] = agent.Mobile()
			fields["bot"] = agent.Bot()
		}

		if p := principalFrom(c); p != nil {
			fields["user_id"] = p.UserID
			fields["role"] = p.Role
		}

		entry := logger.WithFields(fields)

		switch {
		case len(c.Errors) > 0:
			entry.WithField("errors", c.Errors.String()).Error("http")
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("http")
		default:
			entry.Info("http")
		}
	}
}

// AuthMiddleware requires a valid bearer token and stores the caller's
// principal on the context.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "Authorization header is required", "MISSING_AUTH_HEADER")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || scheme != "Bearer" || token == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized",
				"Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT")
			return
		}

		claims, err := tokens.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				abortAuth(c, http.StatusUnauthorized, "token_expired", "Access token has expired", "TOKEN_EXPIRED")
				return
			}
			abortAuth(c, http.StatusUnauthorized, "invalid_token", "Invalid access token", "INVALID_TOKEN")
			return
		}

		c.Set(principalKey, claims.Principal())
		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principalFrom(c)
		if p == nil {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "Authentication required", "MISSING_AUTH_HEADER")
			return
		}

		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}

		abortAuth(c, http.StatusForbidden, "forbidden",
			"You don't have permission to access this resource", "INSUFFICIENT_PERMISSIONS")
	}
}

func principalFrom(c *gin.Context) *domain.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*domain.Principal)
	return p
}

func abortAuth(c *gin.Context, status int, errCode, msg, code string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: errCode, Message: msg, Code: code})
}
