package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired indicates the token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates the token failed signature or structural checks.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the verified token payload asserting a user identity.
//
// PasswordHash is a snapshot of the stored credential at issue time. It is
// NOT re-checked against the live user record during Validate; the only hard
// guarantees are signature and expiry. Treat the snapshot as a weak
// invalidation hint, not a revocation mechanism.
type Claims struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	jwt.RegisteredClaims
}

// Identity maps the claim onto the request-scoped principal.
func (c *Claims) Identity() (userID, username string) {
	return c.Subject, c.Username
}

// TokenService issues and validates signed bearer tokens.
type TokenService interface {
	Issue(username, passwordHash, userID string) (string, error)
	Validate(token string) (*Claims, error)
}

type tokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService builds a TokenService signing with the given process-wide
// secret. The secret is fixed for the process lifetime; there is no rotation.
func NewTokenService(secret string, ttl time.Duration) TokenService {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &tokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (s *tokenService) Issue(username, passwordHash, userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username:     username,
		PasswordHash: passwordHash,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *tokenService) Validate(tokenString string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
