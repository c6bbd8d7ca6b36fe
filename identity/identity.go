// Package identity resolves bearer tokens into a stable subject identity.
// Handlers and the ledger only ever see the resolved Identity.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingToken = errors.New("no token")
	ErrInvalidToken = errors.New("invalid token")
)

const (
	ProviderFirebase = "firebase"
	ProviderGoogle   = "google"
	ProviderHMAC     = "hmac"
)

// Identity is what a verified token tells us about the caller.
type Identity struct {
	Subject string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Role    string `json:"role,omitempty"`
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Options selects and configures a Verifier.
type Options struct {
	Provider          string
	FirebaseProjectID string
	GoogleClientID    string
	Secret            string
	Issuer            string
}

// NewVerifier builds the verifier named by opts.Provider.
func NewVerifier(opts Options) (Verifier, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderFirebase:
		if opts.FirebaseProjectID == "" {
			return nil, fmt.Errorf("firebase verifier: FIREBASE_PROJECT_ID is required")
		}
		return NewFirebaseVerifier(FirebaseConfig{ProjectID: opts.FirebaseProjectID})
	case ProviderGoogle:
		if opts.GoogleClientID == "" {
			return nil, fmt.Errorf("google verifier: GOOGLE_CLIENT_ID is required")
		}
		return NewGoogleVerifier(opts.GoogleClientID), nil
	case ProviderHMAC:
		return NewHMACVerifier(opts.Secret, opts.Issuer)
	default:
		return nil, fmt.Errorf("unknown auth provider %q", opts.Provider)
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
