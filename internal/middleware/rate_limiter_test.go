package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/trailbook/internal/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		in     string
		limit  int64
		period time.Duration
		ok     bool
	}{
		{"60-1m", 60, time.Minute, true},
		{"5-10s", 5, 10 * time.Second, true},
		{" 1000-2h ", 1000, 2 * time.Hour, true},
		{"60", 0, 0, false},
		{"0-1m", 0, 0, false},
		{"x-1m", 0, 0, false},
		{"60-m", 0, 0, false},
		{"60-1d", 0, 0, false},
		{"60-0s", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			rate, err := ParseRate(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.limit, rate.Limit)
			assert.Equal(t, tt.period, rate.Period)
		})
	}
}

func TestRateLimiterInMemory(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(ContextUserKey, &helpers.EnhancedClaims{UserID: id})
		}
	})
	r.POST("/things", RateLimiter(nil, "2-1m", "test_writes", discardLogger()), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	post := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/things", nil)
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusCreated, post("u1").Code)
	w := post("u1")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = post("u1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "too many requests")

	// counters are kept per user
	assert.Equal(t, http.StatusCreated, post("u2").Code)
	assert.Equal(t, http.StatusCreated, post("").Code)
}

func TestRateLimiterBadRateDisablesLimiting(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimiter(nil, "lots", "broken", discardLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	for range 5 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
