package helpers

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joshua-takyi/trailbook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitials(t *testing.T) {
	assert.Equal(t, "KM", Initials("kofi", "Mensah"))
	assert.Equal(t, "K", Initials("Kofi", ""))
	assert.Equal(t, "M", Initials("  ", "mensah"))
	assert.Equal(t, "X", Initials("", ""))
	assert.Equal(t, "X", Initials("1st", "#2"))
	assert.Equal(t, "ÉO", Initials("élodie", "Owusu"))
}

func newValidator(secret string) *TokenValidator {
	return NewTokenValidator("", secret, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims CustomClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestValidateTokenHMAC(t *testing.T) {
	v := newValidator("s3cret")
	defer v.Close()

	claims := CustomClaims{Email: "kofi@example.com"}
	claims.Subject = "8f9c2a4e-8d7a-4c6b-9a51-0c1f3f1e9b10"
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	claims.AppMetadata.Provider = "email"

	got, err := v.ValidateToken(sign(t, jwt.SigningMethodHS256, []byte("s3cret"), claims))
	require.NoError(t, err)
	assert.Equal(t, "kofi@example.com", got.Email)
	assert.Equal(t, claims.Subject, got.Subject)
	assert.Equal(t, "email", got.AppMetadata.Provider)

	_, err = v.ValidateToken(sign(t, jwt.SigningMethodHS256, []byte("other"), claims))
	assert.Error(t, err)

	_, err = v.ValidateToken(sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, claims))
	assert.Error(t, err)

	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	_, err = v.ValidateToken(sign(t, jwt.SigningMethodHS256, []byte("s3cret"), claims))
	assert.Error(t, err)
}

func TestValidateTokenWithoutKeys(t *testing.T) {
	v := newValidator("")
	_, err := v.ValidateToken("a.b.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither JWT_SECRET nor SUPABASE_URL")
}

func TestEnhancedClaimsActor(t *testing.T) {
	ec := &EnhancedClaims{UserID: "8f9c2a4e-8d7a-4c6b-9a51-0c1f3f1e9b10", Email: "a@b.c"}
	actor := ec.Actor()
	assert.Equal(t, models.RoleCustomer, actor.Role)
	assert.Equal(t, ec.UserID, actor.UserID.String())

	ec.Role = models.RoleAdmin
	assert.Equal(t, models.RoleAdmin, ec.GetSafeRole())
	assert.True(t, ec.Actor().IsAdmin())
}
