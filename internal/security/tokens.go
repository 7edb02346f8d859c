package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	identitydomain "cuidame-health/backend/internal/identity/domain"
)

// TokenKind discriminates access tokens from refresh tokens inside the signed claims.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// RefreshTokenTTL is fixed and does not follow the configured access TTL.
const RefreshTokenTTL = 30 * 24 * time.Hour

var (
	// ErrInvalidToken is returned when a token is malformed, its signature does not verify,
	// or it was not issued by this codec.
	ErrInvalidToken = errors.New("invalid token signature")
	// ErrTokenExpired is returned for a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the payload of every bearer token.
type Claims struct {
	jwt.RegisteredClaims
	Email string    `json:"email,omitempty"`
	Name  string    `json:"name,omitempty"`
	Role  string    `json:"role,omitempty"`
	Kind  TokenKind `json:"typ"`
}

// Principal returns the identity carried by the claims. SessionID is not part of the token.
func (c *Claims) Principal() identitydomain.Principal {
	return identitydomain.Principal{
		UserID: c.Subject,
		Email:  c.Email,
		Name:   c.Name,
		Role:   c.Role,
	}
}

// TokenCodec issues and decodes HS256 bearer tokens with a single process-wide secret.
// Decoding only proves the token is authentic and unexpired; whether it still grants
// access is decided by the session store.
type TokenCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// TokenCodecOption configures a TokenCodec.
type TokenCodecOption func(*TokenCodec)

// WithTokenClock overrides the codec's clock (tests).
func WithTokenClock(now func() time.Time) TokenCodecOption {
	return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec returns a codec signing with secret and stamping issuer on every token.
func NewTokenCodec(secret []byte, issuer string, opts ...TokenCodecOption) *TokenCodec {
	c := &TokenCodec{
		secret: append([]byte(nil), secret...),
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs a token of the given kind for principal, valid for ttl from now.
// Every token carries a random jti, so two tokens are never byte-identical.
// A ttl of zero yields a token that is already expired.
func (c *TokenCodec) Issue(principal identitydomain.Principal, kind TokenKind, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	if principal.UserID == "" {
		return "", time.Time{}, errors.New("security: principal id is required")
	}
	if kind != TokenKindAccess && kind != TokenKindRefresh {
		return "", time.Time{}, errors.New("security: unknown token kind")
	}
	if ttl < 0 {
		ttl = 0
	}
	now := c.now().UTC()
	expiresAt = now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   principal.UserID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: principal.Email,
		Name:  principal.Name,
		Role:  principal.Role,
		Kind:  kind,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Decode verifies signature, issuer, and expiry. The signature is checked first, so a
// tampered token is reported as ErrInvalidToken even when it is also expired.
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || (claims.Kind != TokenKindAccess && claims.Kind != TokenKindRefresh) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
