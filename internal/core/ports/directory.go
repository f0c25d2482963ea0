package ports

import (
	"context"

	"github.com/clientdesk/portal/internal/core/domain"
)

// Directory is the client list as seen by the session layer and the API.
type Directory interface {
	// Upsert inserts c, or updates in place the record sharing its email.
	Upsert(ctx context.Context, c domain.Client) (*domain.Client, error)
	// List never fails; read errors degrade to an empty result.
	List(ctx context.Context) []domain.Client
}
