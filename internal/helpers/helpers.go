package helpers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	AppMetadata struct {
		Provider  string   `json:"provider"`
		Providers []string `json:"providers"`
		Roles     []string `json:"roles,omitempty"`
	} `json:"app_metadata"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}

// TokenValidator verifies access tokens with a shared HMAC secret when one is configured,
// otherwise against the Supabase JWKS endpoint.
type TokenValidator struct {
	secret  []byte
	jwksURL string
	logger  *slog.Logger

	mu   sync.Mutex
	jwks *keyfunc.JWKS
}

func NewTokenValidator(supabaseURL, secret string, logger *slog.Logger) *TokenValidator {
	v := &TokenValidator{secret: []byte(secret), logger: logger}
	if supabaseURL != "" {
		v.jwksURL = strings.TrimRight(supabaseURL, "/") + "/auth/v1/.well-known/jwks.json"
	}
	return v
}

func (v *TokenValidator) keyfunc() (jwt.Keyfunc, error) {
	if len(v.secret) > 0 {
		return func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return v.secret, nil
		}, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.jwks != nil {
		return v.jwks.Keyfunc, nil
	}
	if v.jwksURL == "" {
		return nil, errors.New("neither JWT_SECRET nor SUPABASE_URL is set")
	}
	jwks, err := keyfunc.Get(v.jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			v.logger.Warn("jwks refresh failed", "url", v.jwksURL, "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load jwks: %w", err)
	}
	v.jwks = jwks
	return jwks.Keyfunc, nil
}

func (v *TokenValidator) ValidateToken(tokenStr string) (*CustomClaims, error) {
	kf, err := v.keyfunc()
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, kf)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}

// Close stops the background JWKS refresh.
func (v *TokenValidator) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// Initials returns the upper-cased first letters of the given names, "X" when none has a letter.
func Initials(names ...string) string {
	var b strings.Builder
	for _, n := range names {
		for _, r := range strings.TrimSpace(n) {
			if unicode.IsLetter(r) {
				b.WriteRune(unicode.ToUpper(r))
			}
			break
		}
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}
