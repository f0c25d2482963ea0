package remote

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clientdesk/portal/internal/core/domain"
)

// TokenSource yields the bearer token of the current session, or "".
type TokenSource interface {
	Token() string
}

// Directory is the client list served by the API. The server mirrors users
// into it on its own, so Upsert does nothing here.
type Directory struct {
	client *Client
	tokens TokenSource
	log    zerolog.Logger
}

func NewDirectory(client *Client, tokens TokenSource, log zerolog.Logger) *Directory {
	return &Directory{client: client, tokens: tokens, log: log}
}

func (d *Directory) Upsert(_ context.Context, c domain.Client) (*domain.Client, error) {
	return &c, nil
}

// List fetches the clients with the current session token. Without a session,
// or on any failure, it returns an empty list.
func (d *Directory) List(ctx context.Context) []domain.Client {
	tkn := d.tokens.Token()
	if tkn == "" {
		return []domain.Client{}
	}

	clients, err := d.client.ListClients(ctx, tkn)
	if err != nil {
		d.log.Error().Err(err).Msg("fetch clients failed")
		return []domain.Client{}
	}
	if clients == nil {
		return []domain.Client{}
	}
	return clients
}
