package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/trailbook/internal/helpers"
	"github.com/joshua-takyi/trailbook/internal/models"
	"go.opentelemetry.io/otel/trace"
)

// ContextUserKey is where AuthMiddleware stores the *helpers.EnhancedClaims.
const ContextUserKey = "user"

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger writes one access log line per request.
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		requestID, _ := c.Get("request_id")
		attrs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if claims, ok := ClaimsFromContext(c); ok {
			attrs = append(attrs, "user_id", claims.UserID, "role", claims.GetSafeRole())
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			attrs = append(attrs, "trace_id", sc.TraceID().String())
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("HTTP Request", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("HTTP Request", attrs...)
		default:
			logger.Info("HTTP Request", attrs...)
		}
	}
}

// ErrorHandler turns errors attached with c.Error into a generic 500 when nothing was written.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		requestID, _ := c.Get("request_id")

		logger.Error("Request error",
			"request_id", requestID,
			"error", err.Error(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		if c.Writer.Written() {
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":    false,
			"error":      "Internal server error",
			"request_id": requestID,
		})
	}
}

// ClaimsFromContext returns the claims AuthMiddleware stored, if any.
func ClaimsFromContext(c *gin.Context) (*helpers.EnhancedClaims, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*helpers.EnhancedClaims)
	return claims, ok && claims != nil
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if token, err := c.Cookie("access_token"); err == nil {
		return token
	}
	return ""
}

// AuthMiddleware validates the access token (Authorization header or access_token cookie)
// and attaches the caller's role from the account directory.
func AuthMiddleware(validator *helpers.TokenValidator, directory models.AccountDirectory, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("authentication required"))
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			logger.Debug("token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("invalid or expired token"))
			return
		}

		enhanced := &helpers.EnhancedClaims{
			CustomClaims: claims,
			Role:         models.RoleCustomer,
			UserID:       claims.Subject,
			Email:        claims.Email,
		}

		account, err := lookupAccount(c, directory, claims)
		switch {
		case err == nil:
			enhanced.Role = account.Role
			enhanced.Fullname = account.FullName
			if enhanced.Email == "" {
				enhanced.Email = account.Email
			}
		case errors.Is(err, models.ErrNotFound):
			logger.Info("profile not found, using default role", "user_id", claims.Subject)
		default:
			logger.Error("profile lookup failed", "user_id", claims.Subject, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse("failed to resolve account"))
			return
		}

		c.Set(ContextUserKey, enhanced)
		c.Next()
	}
}

func lookupAccount(c *gin.Context, directory models.AccountDirectory, claims *helpers.CustomClaims) (*models.Account, error) {
	if id, err := uuid.Parse(claims.Subject); err == nil {
		acc, err := directory.GetAccount(c.Request.Context(), id)
		if err == nil || !errors.Is(err, models.ErrNotFound) {
			return acc, err
		}
	}
	if claims.Email == "" {
		return nil, models.ErrNotFound
	}
	return directory.FindAccountByEmail(c.Request.Context(), claims.Email)
}
