package auth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleIdentity is the verified payload of a Google ID token.
type GoogleIdentity struct {
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier validates a Google sign-in credential.
// This allows stubbing the Google round-trip in tests.
type GoogleVerifier interface {
	Verify(ctx context.Context, credential string) (*GoogleIdentity, error)
}

// IDTokenVerifier validates credentials against Google's public keys for the
// configured OAuth client id.
type IDTokenVerifier struct {
	clientID string
}

// NewIDTokenVerifier creates a verifier bound to clientID.
func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{clientID: clientID}
}

// Verify validates the credential and extracts the profile claims.
func (v *IDTokenVerifier) Verify(ctx context.Context, credential string) (*GoogleIdentity, error) {
	if v.clientID == "" {
		return nil, errors.New("google client id is not configured")
	}

	payload, err := idtoken.Validate(ctx, credential, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("validate google credential: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, errors.New("google credential has no email claim")
	}
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)

	return &GoogleIdentity{Email: email, Name: name, Picture: picture}, nil
}
