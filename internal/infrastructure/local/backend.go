package local

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/clientdesk/portal/internal/core/domain"
	"github.com/clientdesk/portal/internal/core/ports"
	"github.com/clientdesk/portal/internal/core/service"
	"github.com/clientdesk/portal/internal/pkg/token"
)

// Backend implements ports.SessionBackend in-process. Latency, when set, is
// waited before every call to mimic a network round trip.
type Backend struct {
	auth    *service.AuthService
	latency time.Duration
}

// NewBackend wires an auth service over the users collection of kv. The
// session manager mirrors users into the directory itself, so no publisher
// or revocation list is attached.
func NewBackend(kv ports.KVStore, tokens *token.Issuer, latency time.Duration, log zerolog.Logger) *Backend {
	auth := service.NewAuthService(NewUserRepository(kv), tokens, nil, nil, log)
	return &Backend{auth: auth, latency: latency}
}

// NewDirectory returns the directory service over the clients collection of kv.
func NewDirectory(kv ports.KVStore, log zerolog.Logger) *service.DirectoryService {
	return service.NewDirectoryService(NewClientRepository(kv), log)
}

func (b *Backend) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	tkn, user, err := b.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{Token: tkn, User: user}, nil
}

func (b *Backend) Register(ctx context.Context, name, email, password string) (*ports.AuthResult, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	tkn, user, err := b.auth.Register(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{Token: tkn, User: user}, nil
}

func (b *Backend) Verify(ctx context.Context, raw string) (*domain.User, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	return b.auth.Verify(ctx, raw)
}

func (b *Backend) UpdateProfile(ctx context.Context, raw string, update domain.ProfileUpdate) (*domain.User, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	user, err := b.auth.Verify(ctx, raw)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			return nil, domain.ErrNotAuthenticated
		}
		return nil, err
	}
	return b.auth.UpdateProfile(ctx, user.ID, update)
}

func (b *Backend) Logout(ctx context.Context, raw string) error {
	return b.auth.Logout(ctx, raw)
}

func (b *Backend) wait(ctx context.Context) error {
	if b.latency <= 0 {
		return nil
	}
	t := time.NewTimer(b.latency)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
