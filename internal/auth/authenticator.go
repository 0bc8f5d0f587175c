package auth

import (
	"context"

	"github.com/mmynk/roomsplit/internal/models"
)

// Authenticator verifies who is calling the API. PasswordAuthenticator is
// the only implementation; the interface keeps AuthService independent of
// how credentials are checked.
type Authenticator interface {
	// Register creates an account for email and returns the stored user.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user owning email if credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential rejects credentials that are too weak to store.
	ValidateCredential(credential string) error
}
