package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACRoundTrip(t *testing.T) {
	v, err := NewHMACVerifier("0123456789abcdef-local", "pawshome-dev")
	require.NoError(t, err)

	token, err := v.Mint(Identity{Subject: "u1", Email: "u1@example.com", Role: "admin"}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.Subject)
	assert.Equal(t, "u1@example.com", id.Email)
	assert.Equal(t, "admin", id.Role)
}

func TestHMACRejectsForeignAndExpiredTokens(t *testing.T) {
	v, err := NewHMACVerifier("0123456789abcdef-local", "pawshome-dev")
	require.NoError(t, err)
	other, err := NewHMACVerifier("another-secret-0123456789", "pawshome-dev")
	require.NoError(t, err)
	otherIssuer, err := NewHMACVerifier("0123456789abcdef-local", "someone-else")
	require.NoError(t, err)

	foreign, err := other.Mint(Identity{Subject: "u1"}, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := v.Mint(Identity{Subject: "u1"}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := otherIssuer.Mint(Identity{Subject: "u1"}, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := v.Mint(Identity{}, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewHMACVerifierNeedsLongSecret(t *testing.T) {
	_, err := NewHMACVerifier("short", "")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	token, err = BearerToken("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic abc", "abc"} {
		_, err := BearerToken(header)
		assert.ErrorIs(t, err, ErrMissingToken, "header %q", header)
	}
}

func TestNewVerifierSelectsProvider(t *testing.T) {
	v, err := NewVerifier(Options{Provider: "hmac", Secret: "0123456789abcdef-local"})
	require.NoError(t, err)
	assert.IsType(t, &HMACVerifier{}, v)

	v, err = NewVerifier(Options{Provider: "google", GoogleClientID: "client.apps.googleusercontent.com"})
	require.NoError(t, err)
	assert.IsType(t, &GoogleVerifier{}, v)

	v, err = NewVerifier(Options{FirebaseProjectID: testProject})
	require.NoError(t, err)
	assert.IsType(t, &FirebaseVerifier{}, v)

	_, err = NewVerifier(Options{Provider: "firebase"})
	assert.Error(t, err)
	_, err = NewVerifier(Options{Provider: "saml"})
	assert.Error(t, err)
}
