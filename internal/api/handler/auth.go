package handler

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "anonrelay-service"

var errInvalidToken = errors.New("invalid token")

// Auth issues and checks operator bearer tokens (HS256). The subject is
// the operator's Telegram id.
type Auth struct {
	secret []byte
}

// NewAuth returns nil for an empty secret; a nil *Auth disables the
// operator API.
func NewAuth(secret string) *Auth {
	if secret == "" {
		return nil
	}
	return &Auth{secret: []byte(secret)}
}

// GenerateToken signs a token for operatorID valid for ttl.
func (a *Auth) GenerateToken(operatorID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(operatorID, 10),
		Issuer:    tokenIssuer,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ParseToken validates raw and returns the operator id it was issued for.
func (a *Auth) ParseToken(raw string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject %q", errInvalidToken, claims.Subject)
	}
	return id, nil
}
