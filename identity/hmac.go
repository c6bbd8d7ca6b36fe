package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretLen = 16

// HMACVerifier accepts HS256 tokens signed with a shared secret. It backs
// local development and tests; production uses an external provider.
type HMACVerifier struct {
	secret []byte
	issuer string
}

type hmacClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Role    string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func NewHMACVerifier(secret, issuer string) (*HMACVerifier, error) {
	if len(secret) < minSecretLen {
		return nil, errors.New("hmac verifier: JWT_SECRET must be at least 16 bytes")
	}
	return &HMACVerifier{secret: []byte(secret), issuer: issuer}, nil
}

func (v *HMACVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &hmacClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}

	return &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
		Role:    claims.Role,
	}, nil
}

// Mint signs a token for id that expires after ttl.
func (v *HMACVerifier) Mint(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := hmacClaims{
		Email:   id.Email,
		Name:    id.Name,
		Picture: id.Picture,
		Role:    id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
