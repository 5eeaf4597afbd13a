// Package auth provides the stateless credential primitives of the service:
// the signed access-token codec and password hashing.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akrylov/authgate/internal/common"
)

// Claims carries the registered claims plus the profile claims embedded in
// every access token. The refresh token value is never part of the claims.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

// Codec creates and verifies signed, time-bound access tokens. It is
// stateless; holders of a valid unexpired token are authenticated without a
// store lookup, which is why the validity window is kept short.
type Codec struct {
	secretKey []byte
	issuer    string
	validity  time.Duration
}

// NewCodec returns a Codec signing HS256 tokens with the given key.
func NewCodec(secretKey []byte, issuer string, validity time.Duration) *Codec {
	return &Codec{secretKey: secretKey, issuer: issuer, validity: validity}
}

// Validity returns the configured access-token lifetime.
func (c *Codec) Validity() time.Duration {
	return c.validity
}

// Generate signs a new access token for the user.
func (c *Codec) Generate(userID, email, fullName string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.validity)),
		},
		Email:    email,
		FullName: fullName,
	})
	return token.SignedString(c.secretKey)
}

// Verify checks signature, issuer and expiry. It fails closed: every
// structural, signature, issuer or expiry problem yields common.ErrInvalidToken
// so callers cannot distinguish the cause.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secretKey, nil
	},
		jwt.WithIssuer(c.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
