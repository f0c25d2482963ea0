package ports

import (
	"context"

	"github.com/clientdesk/portal/internal/core/domain"
)

// ClientRepository defines persistence operations for directory records.
type ClientRepository interface {
	// FindByEmail returns (nil, nil) when no record has the given email.
	FindByEmail(ctx context.Context, email string) (*domain.Client, error)
	// Insert fails with domain.ErrDuplicateEmail when c.Email is already stored.
	Insert(ctx context.Context, c *domain.Client) error
	// Replace overwrites the record with c.ID.
	Replace(ctx context.Context, c *domain.Client) error
	// List returns every record in insertion order.
	List(ctx context.Context) ([]domain.Client, error)
}
