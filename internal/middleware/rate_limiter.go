package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/trailbook/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginmiddleware "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// ParseRate accepts "<limit>-<n><unit>" with unit s, m or h, e.g. "60-1m" or "5-10s".
func ParseRate(rateStr string) (limiter.Rate, error) {
	limitStr, periodStr, ok := strings.Cut(strings.TrimSpace(rateStr), "-")
	if !ok {
		return limiter.Rate{}, fmt.Errorf("invalid rate format: %s", rateStr)
	}

	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid limit: %s", limitStr)
	}
	if len(periodStr) < 2 {
		return limiter.Rate{}, fmt.Errorf("invalid period: %s", periodStr)
	}

	var unit time.Duration
	switch periodStr[len(periodStr)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	default:
		return limiter.Rate{}, fmt.Errorf("unsupported period: %s", periodStr)
	}
	n, err := strconv.Atoi(periodStr[:len(periodStr)-1])
	if err != nil || n <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid period: %s", periodStr)
	}

	return limiter.Rate{Period: time.Duration(n) * unit, Limit: limit}, nil
}

func newStore(rdb *redis.Client, routeID string, period time.Duration) (limiter.Store, error) {
	opts := limiter.StoreOptions{
		Prefix:          "rate_limiter:" + routeID,
		MaxRetry:        3,
		CleanUpInterval: period,
	}
	if rdb == nil {
		return memorystore.NewStoreWithOptions(opts), nil
	}
	store, err := redisstore.NewStoreWithOptions(rdb, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis store for route %s: %w", routeID, err)
	}
	return store, nil
}

// rateKey limits authenticated callers per user and everyone else per client ip.
func rateKey(c *gin.Context) string {
	if claims, ok := ClaimsFromContext(c); ok && claims.UserID != "" {
		return "user:" + claims.UserID
	}
	return "ip:" + c.ClientIP()
}

// RateLimiter throttles a route group. A nil redis client keeps counters in process memory.
// An unusable rate or store disables limiting rather than the route.
func RateLimiter(rdb *redis.Client, rateStr, routeID string, logger *slog.Logger) gin.HandlerFunc {
	rate, err := ParseRate(rateStr)
	if err != nil {
		logger.Error("rate limiting disabled", "route", routeID, "error", err)
		return func(c *gin.Context) { c.Next() }
	}

	store, err := newStore(rdb, routeID, rate.Period)
	if err != nil {
		logger.Error("rate limiting disabled", "route", routeID, "error", err)
		return func(c *gin.Context) { c.Next() }
	}

	return ginmiddleware.NewMiddleware(limiter.New(store, rate),
		ginmiddleware.WithKeyGetter(rateKey),
		ginmiddleware.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse("too many requests, slow down"))
		}),
		ginmiddleware.WithErrorHandler(func(c *gin.Context, err error) {
			logger.Error("rate limiter store failed", "route", routeID, "error", err)
			c.Next()
		}),
	)
}
