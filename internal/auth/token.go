package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/campus-console/internal/config"
)

const clockSkew = 30 * time.Second

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the console's view of an identity-service token. The subject is
// the admin's staff id.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager verifies HS256 bearer tokens issued by the campus identity
// service. Issue mints tokens the same way for local runs and tests.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	tm := &TokenManager{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}
	if tm.ttl <= 0 {
		tm.ttl = time.Hour
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(func() time.Time { return tm.now() }),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	tm.parser = jwt.NewParser(opts...)
	return tm
}

// Issue signs a token for staffID carrying role.
func (tm *TokenManager) Issue(staffID, name, role string) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staffID,
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign console token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify returns the claims of a valid token. Expired tokens yield
// ErrTokenExpired, anything else unusable yields ErrTokenInvalid.
func (tm *TokenManager) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := tm.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: no subject", ErrTokenInvalid)
	}
	return claims, nil
}
