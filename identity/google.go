package identity

import (
	"context"
	"fmt"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
)

// GoogleVerifier accepts Google Sign-In ID tokens issued for clientID.
type GoogleVerifier struct {
	clientID string
	verifier googleAuthIDTokenVerifier.Verifier
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

func (v *GoogleVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if err := v.verifier.VerifyIDToken(token, []string{v.clientID}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claimSet, err := googleAuthIDTokenVerifier.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claimSet.Sub == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}

	return &Identity{
		Subject: claimSet.Sub,
		Email:   claimSet.Email,
		Name:    claimSet.Name,
	}, nil
}
