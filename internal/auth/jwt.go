// Package auth verifies the bearer tokens issued to users after the OAuth
// handshake.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"trackvault/internal/catalog"
)

// ErrUnauthorized indicates a missing, malformed or expired token.
var ErrUnauthorized = errors.New("unauthorized")

// MinSecretLength is the shortest accepted signing secret.
const MinSecretLength = 16

// Claims are the user fields carried in a token. The subject is the user id.
type Claims struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatarUrl"`
	jwt.RegisteredClaims
}

// JWT signs and verifies HS256 tokens.
type JWT struct {
	secret []byte
	now    func() time.Time
}

// NewJWT returns an authenticator using secret.
func NewJWT(secret string) (*JWT, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)
	}
	return &JWT{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for u valid for ttl.
func (a *JWT) Issue(u catalog.User, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Login:     u.Login,
		AvatarURL: u.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token and returns the user it
// names. Admin status is never taken from the token.
func (a *JWT) Verify(token string) (catalog.User, error) {
	if token == "" {
		return catalog.User{}, ErrUnauthorized
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return catalog.User{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return catalog.User{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}

	return catalog.User{ID: claims.Subject, Login: claims.Login, AvatarURL: claims.AvatarURL}, nil
}
