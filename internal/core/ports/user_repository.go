package ports

import (
	"context"

	"github.com/clientdesk/portal/internal/core/domain"
)

// UserRepository defines the interface for user persistence.
// Lookups of an unknown user return domain.ErrUserNotFound.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Create stores a new user. An existing email yields domain.ErrDuplicateEmail.
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
}
