package local

import (
	"context"
	"sync"

	"github.com/clientdesk/portal/internal/core/domain"
	"github.com/clientdesk/portal/internal/core/ports"
)

// ClientRepository implements ports.ClientRepository over the "clients" key.
// Array order is insertion order.
type ClientRepository struct {
	kv ports.KVStore
	mu sync.Mutex
}

func NewClientRepository(kv ports.KVStore) *ClientRepository {
	return &ClientRepository{kv: kv}
}

func (r *ClientRepository) FindByEmail(ctx context.Context, email string) (*domain.Client, error) {
	clients, err := load[domain.Client](ctx, r.kv, KeyClients)
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		if c.Email == email {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *ClientRepository) Insert(ctx context.Context, c *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients, err := load[domain.Client](ctx, r.kv, KeyClients)
	if err != nil {
		return err
	}
	for _, existing := range clients {
		if existing.Email == c.Email {
			return domain.ErrDuplicateEmail
		}
	}
	return save(ctx, r.kv, KeyClients, append(clients, *c))
}

func (r *ClientRepository) Replace(ctx context.Context, c *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients, err := load[domain.Client](ctx, r.kv, KeyClients)
	if err != nil {
		return err
	}
	for i := range clients {
		if clients[i].ID == c.ID {
			clients[i] = *c
			return save(ctx, r.kv, KeyClients, clients)
		}
	}
	return save(ctx, r.kv, KeyClients, append(clients, *c))
}

func (r *ClientRepository) List(ctx context.Context) ([]domain.Client, error) {
	return load[domain.Client](ctx, r.kv, KeyClients)
}
