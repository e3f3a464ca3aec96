package utils // package utils provides token issuing/verification and password hashing

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors.  Expiry is the only invalidation path; there is no
// revocation list.
var (
	ErrExpiredToken   = errors.New("token expired")
	ErrMalformedToken = errors.New("malformed token")
)

// DefaultTokenTTL is the lifetime of an access token.
const DefaultTokenTTL = time.Hour

// Subject is what a verified token proves about its bearer.
type Subject struct {
	UserID uint64
	Email  string
}

// Claims is the JWT payload: sub carries the user id, email rides along.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token plus its validity window.
type IssuedToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and verifies HS256 access tokens.  It holds no
// mutable state and is safe for concurrent use.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService builds a service for the shared secret.  A non-positive
// ttl falls back to DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the service that reads time from now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	cp := *s
	cp.now = now
	return &cp
}

// Issue signs a token for the user.  Times are truncated to whole seconds
// because that is the precision JWT numeric dates carry.
func (s *TokenService) Issue(userID uint64, email string) (IssuedToken, error) {
	iat := s.now().UTC().Truncate(time.Second)
	exp := iat.Add(s.ttl)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return IssuedToken{Token: signed, IssuedAt: iat, ExpiresAt: exp}, nil
}

// Verify checks the signature and expiry and returns the token's subject.
// A token is valid up to and including its expiry instant.
func (s *TokenService) Verify(raw string) (Subject, error) {
	// Expiry is checked below against the service clock rather than by the
	// parser, so the boundary is inclusive and testable.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	var claims Claims
	tok, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return Subject{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return Subject{}, fmt.Errorf("%w: missing exp", ErrMalformedToken)
	}
	if s.now().After(claims.ExpiresAt.Time) {
		return Subject{}, ErrExpiredToken
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return Subject{}, fmt.Errorf("%w: bad sub", ErrMalformedToken)
	}
	if claims.Email == "" {
		return Subject{}, fmt.Errorf("%w: missing email", ErrMalformedToken)
	}
	return Subject{UserID: id, Email: claims.Email}, nil
}
