package ports

import (
	"context"

	"github.com/clientdesk/portal/internal/core/domain"
)

// AuthResult is returned by a successful login or registration.
type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// SessionBackend is what the session manager authenticates against: either
// the remote API or the in-process local store.
type SessionBackend interface {
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Register(ctx context.Context, name, email, password string) (*AuthResult, error)
	Verify(ctx context.Context, token string) (*domain.User, error)
	UpdateProfile(ctx context.Context, token string, update domain.ProfileUpdate) (*domain.User, error)
	Logout(ctx context.Context, token string) error
}
