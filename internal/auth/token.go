package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims is the verified payload of a bearer token.
type TokenClaims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// TokenIssuer creates and verifies signed compact bearer tokens. Both
// operations are pure computation and safe for concurrent use. There is
// no revocation: a token stays valid until expiry or until the signing
// secret is rotated.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer constructs a TokenIssuer signing with HMAC-SHA256.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Create mints a token carrying the subject (username) and primary role,
// expiring after the configured TTL.
func (t *TokenIssuer) Create(subject, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  t.issuer,
		"sub":  subject,
		"role": role,
		"iat":  jwt.NewNumericDate(now),
		"exp":  jwt.NewNumericDate(now.Add(t.ttl)),
		"jti":  uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry and extracts the claims. Any
// verification failure — bad signature, malformed token, expiry, missing
// subject — yields (nil, false) so callers treat every invalid token the
// same way.
func (t *TokenIssuer) Decode(tokenString string) (*TokenClaims, bool) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, false
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return nil, false
	}
	role, _ := claims["role"].(string)
	return &TokenClaims{Subject: subject, Role: role, ExpiresAt: expiry.Time}, true
}
