package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clientdesk/portal/internal/api/metrics"
	"github.com/clientdesk/portal/internal/core/domain"
	"github.com/clientdesk/portal/internal/core/ports"
)

// DirectoryService maintains the client list, deduplicated by email.
type DirectoryService struct {
	repo ports.ClientRepository
	log  zerolog.Logger
}

func NewDirectoryService(repo ports.ClientRepository, log zerolog.Logger) *DirectoryService {
	return &DirectoryService{repo: repo, log: log}
}

// Upsert replaces the record sharing c's email, keeping its id, or appends c
// under a fresh id.
func (s *DirectoryService) Upsert(ctx context.Context, c domain.Client) (*domain.Client, error) {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.Email == "" {
		metrics.DirectoryUpsertsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("upsert client: %w", domain.ErrInvalidInput)
	}

	for attempt := 0; ; attempt++ {
		existing, err := s.repo.FindByEmail(ctx, c.Email)
		if err != nil {
			metrics.DirectoryUpsertsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("upsert client: %w", err)
		}

		if existing != nil {
			c.ID = existing.ID
			if err := s.repo.Replace(ctx, &c); err != nil {
				metrics.DirectoryUpsertsTotal.WithLabelValues("error").Inc()
				return nil, fmt.Errorf("upsert client: replace: %w", err)
			}
			metrics.DirectoryUpsertsTotal.WithLabelValues("updated").Inc()
			return &c, nil
		}

		c.ID = uuid.NewString()
		err = s.repo.Insert(ctx, &c)
		if errors.Is(err, domain.ErrDuplicateEmail) && attempt == 0 {
			// Another upsert stored the email after our lookup; replace its record.
			continue
		}
		if err != nil {
			metrics.DirectoryUpsertsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("upsert client: insert: %w", err)
		}
		break
	}
	metrics.DirectoryUpsertsTotal.WithLabelValues("inserted").Inc()
	s.log.Debug().Str("client_id", c.ID).Msg("client added to directory")

	return &c, nil
}

// List returns every client. A read failure is logged and answered with an
// empty list.
func (s *DirectoryService) List(ctx context.Context) []domain.Client {
	clients, err := s.repo.List(ctx)
	if err != nil {
		metrics.DirectoryListErrorsTotal.Inc()
		s.log.Error().Err(fmt.Errorf("%w: %w", domain.ErrStorageRead, err)).Msg("list clients failed")
		return []domain.Client{}
	}
	if clients == nil {
		return []domain.Client{}
	}
	return clients
}
