package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/infrastructure/config"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestTokenService(t *testing.T) *OrderTokenService {
	t.Helper()
	svc, err := NewOrderTokenService(config.JWTConfig{
		Secret:        testSecret,
		Issuer:        "test-issuer",
		OrderTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestNewOrderTokenService(t *testing.T) {
	_, err := NewOrderTokenService(config.JWTConfig{})
	assert.ErrorIs(t, err, ErrMissingSecret)

	svc, err := NewOrderTokenService(config.JWTConfig{Secret: testSecret})
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, svc.TTL())
}

func TestEmailHash(t *testing.T) {
	// sha256("ana@example.com")
	want := "8e43ca37701228e74983efdbd0cff5c16b3b1e5d4e29a7c05626d4d25a018e11"
	assert.Equal(t, want, EmailHash("ana@example.com"))
	assert.Equal(t, want, EmailHash("  Ana@Example.COM "))
}

func TestOrderToken_IssueAndVerify(t *testing.T) {
	svc := newTestTokenService(t)

	tok, err := svc.Issue(42, "ana@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 5*time.Second)

	claims, err := svc.Verify(tok.Token)
	require.NoError(t, err)
	id, err := claims.OrderID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.True(t, claims.MatchesEmail("ANA@example.com"))
	assert.False(t, claims.MatchesEmail("eve@example.com"))
}

func TestOrderToken_VerifyFor(t *testing.T) {
	svc := newTestTokenService(t)
	tok, err := svc.Issue(42, "ana@example.com")
	require.NoError(t, err)

	_, err = svc.VerifyFor(tok.Token, 42)
	assert.NoError(t, err)

	_, err = svc.VerifyFor(tok.Token, 43)
	assert.ErrorIs(t, err, ErrOrderMismatch)
}

func TestOrderToken_Expired(t *testing.T) {
	svc := newTestTokenService(t)
	issuedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issuedAt }
	tok, err := svc.Issue(42, "ana@example.com")
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	_, err = svc.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestOrderToken_Rejects(t *testing.T) {
	svc := newTestTokenService(t)
	tok, err := svc.Issue(42, "ana@example.com")
	require.NoError(t, err)

	t.Run("tampered", func(t *testing.T) {
		parts := strings.Split(tok.Token, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
		_, err := svc.Verify(tampered)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewOrderTokenService(config.JWTConfig{Secret: "another-secret-key-at-least-32-chars", Issuer: "test-issuer"})
		require.NoError(t, err)
		_, err = other.Verify(tok.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		other, err := NewOrderTokenService(config.JWTConfig{Secret: testSecret, Issuer: "someone-else"})
		require.NoError(t, err)
		_, err = other.Verify(tok.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &OrderClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "42", Issuer: "test-issuer"},
			EmailHash:        EmailHash("ana@example.com"),
		})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Verify(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing email hash", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, &OrderClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "42", Issuer: "test-issuer"},
		})
		s, err := raw.SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = svc.Verify(s)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
