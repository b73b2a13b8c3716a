package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setMemoryEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "local-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setMemoryEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "60-1m", cfg.RateLimit)
	assert.Equal(t, "trailbook", cfg.MongoDBDatabase)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, time.Hour, cfg.Database.MaxConnLifetime)
	assert.True(t, cfg.FeatureReviewVotes)
	assert.True(t, cfg.FeatureReviewReports)
	assert.False(t, cfg.SMTP.Enabled())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfigOverrides(t *testing.T) {
	setMemoryEnv(t)
	t.Setenv("FEATURE_REVIEW_VOTES", "false")
	t.Setenv("DB_MAX_CONN_IDLE_TIME", "90s")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("EMAIL_FROM", "bookings@example.com")
	t.Setenv("SMTP_PORT", "not-a-port")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.FeatureReviewVotes)
	assert.Equal(t, 90*time.Second, cfg.Database.MaxConnIdleTime)
	assert.True(t, cfg.SMTP.Enabled())
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment: "development",
			StoreDriver: StoreDriverPostgres,
			Database:    DatabaseConfig{URL: "postgres://localhost/trailbook", MaxConns: 10, MinConns: 2},
			MongoDBURI:  "mongodb://localhost",
			SupabaseURL: "https://project.supabase.co", SupabaseAnonKey: "anon",
		}
	}

	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing database", func(c *Config) { c.Database.URL = "" }, "DATABASE_URL"},
		{"missing mongo", func(c *Config) { c.MongoDBURI = "" }, "MONGODB_URI"},
		{"unknown driver", func(c *Config) { c.StoreDriver = "sqlite" }, "STORE_DRIVER"},
		{"pool bounds", func(c *Config) { c.Database.MinConns = 20 }, "DB_MIN_CONNS"},
		{"no token keys", func(c *Config) { c.StoreDriver, c.SupabaseURL = StoreDriverMemory, "" }, "JWT_SECRET"},
		{"short production secret", func(c *Config) { c.Environment, c.JWTSecret = "production", "short" }, "32 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
