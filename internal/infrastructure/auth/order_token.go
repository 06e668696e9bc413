package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/storefront/backend/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrOrderMismatch    = errors.New("token was issued for another order")
	ErrMissingSecret    = errors.New("order token secret is empty")
)

// OrderClaims are the claims of an order tracking token.
// The subject is the WooCommerce order id.
type OrderClaims struct {
	jwt.RegisteredClaims
	EmailHash string `json:"email_hash"`
}

// OrderID parses the subject as an order id
func (c *OrderClaims) OrderID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidClaims
	}
	return id, nil
}

// MatchesEmail reports whether email hashes to the email_hash claim
func (c *OrderClaims) MatchesEmail(email string) bool {
	return c.EmailHash == EmailHash(email)
}

// OrderToken is a signed token and its expiry
type OrderToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OrderTokenService issues and verifies order tracking tokens.
// Tokens let a guest read their own order without an account.
type OrderTokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewOrderTokenService creates a new token service
func NewOrderTokenService(cfg config.JWTConfig) (*OrderTokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	ttl := cfg.OrderTokenTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &OrderTokenService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// EmailHash returns the hex SHA-256 of the trimmed, lowercased email
func EmailHash(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// Issue signs a token for orderID bound to the billing email
func (s *OrderTokenService) Issue(orderID int64, email string) (*OrderToken, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &OrderClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(orderID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		EmailHash: EmailHash(email),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &OrderToken{Token: signed, ExpiresAt: expiresAt.UTC()}, nil
}

// Verify validates the signature, issuer and lifetime and returns the claims
func (s *OrderTokenService) Verify(tokenString string) (*OrderClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &OrderClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*OrderClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.EmailHash == "" {
		return nil, ErrInvalidClaims
	}
	if _, err := claims.OrderID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyFor verifies the token and checks it was issued for orderID
func (s *OrderTokenService) VerifyFor(tokenString string, orderID int64) (*OrderClaims, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	id, _ := claims.OrderID()
	if id != orderID {
		return nil, ErrOrderMismatch
	}
	return claims, nil
}

// TTL returns the token lifetime
func (s *OrderTokenService) TTL() time.Duration {
	return s.ttl
}
