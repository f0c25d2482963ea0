package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clientdesk/portal/internal/api/metrics"
	"github.com/clientdesk/portal/internal/core/domain"
	"github.com/clientdesk/portal/internal/core/ports"
	"github.com/clientdesk/portal/internal/pkg/token"
)

// DirectoryPublisher receives the directory record of every user that was
// created, logged in, or changed. Delivery is fire-and-forget.
type DirectoryPublisher interface {
	Enqueue(c domain.Client)
}

// TokenRevoker abstracts the revocation list (Redis).
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthService implements registration, login, token verification, profile
// updates and logout. directory and revoker are optional.
type AuthService struct {
	repo      ports.UserRepository
	tokens    *token.Issuer
	directory DirectoryPublisher
	revoker   TokenRevoker
	log       zerolog.Logger
}

func NewAuthService(
	repo ports.UserRepository,
	tokens *token.Issuer,
	directory DirectoryPublisher,
	revoker TokenRevoker,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		repo:      repo,
		tokens:    tokens,
		directory: directory,
		revoker:   revoker,
		log:       log,
	}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (string, *domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		observe("register", domain.ErrInvalidInput)
		return "", nil, domain.ErrInvalidInput
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		observe("register", domain.ErrDuplicateEmail)
		return "", nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		observe("register", err)
		return "", nil, fmt.Errorf("register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		observe("register", err)
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("register: %w", err)
	}

	tkn, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}

	s.publish(user)
	observe("register", nil)
	s.log.Info().Str("user_id", user.ID).Msg("user registered")

	return tkn, user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		observe("login", domain.ErrInvalidCredentials)
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			observe("login", domain.ErrInvalidCredentials)
			return "", nil, domain.ErrInvalidCredentials
		}
		observe("login", err)
		return "", nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		observe("login", domain.ErrInvalidCredentials)
		return "", nil, domain.ErrInvalidCredentials
	}

	tkn, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}

	s.publish(user)
	observe("login", nil)

	return tkn, user, nil
}

// Verify resolves raw to its user. Revoked, malformed or orphaned tokens
// yield domain.ErrInvalidToken.
func (s *AuthService) Verify(ctx context.Context, raw string) (*domain.User, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		observe("verify", domain.ErrInvalidToken)
		return nil, err
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			observe("verify", err)
			return nil, fmt.Errorf("verify: revocation check: %w", err)
		}
		if revoked {
			observe("verify", domain.ErrInvalidToken)
			return nil, domain.ErrInvalidToken
		}
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			observe("verify", domain.ErrInvalidToken)
			return nil, domain.ErrInvalidToken
		}
		observe("verify", err)
		return nil, fmt.Errorf("verify: %w", err)
	}

	observe("verify", nil)
	return user, nil
}

// UpdateProfile merges update into the stored user. Email cannot change.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			observe("update_profile", domain.ErrNotAuthenticated)
			return nil, domain.ErrNotAuthenticated
		}
		observe("update_profile", err)
		return nil, fmt.Errorf("update profile: %w", err)
	}

	update.Apply(user)
	user.Name = strings.TrimSpace(user.Name)
	if user.Name == "" {
		observe("update_profile", domain.ErrInvalidInput)
		return nil, domain.ErrInvalidInput
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		observe("update_profile", err)
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.publish(user)
	observe("update_profile", nil)
	s.log.Info().Str("user_id", user.ID).Msg("profile updated")

	return user, nil
}

// Logout revokes raw until it would have expired anyway. Without a revoker
// it only checks that the token is well formed.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		observe("logout", domain.ErrInvalidToken)
		return err
	}
	if s.revoker == nil {
		observe("logout", nil)
		return nil
	}

	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
		observe("logout", err)
		return fmt.Errorf("logout: %w", err)
	}

	metrics.TokensRevokedTotal.Inc()
	observe("logout", nil)
	s.log.Info().Str("user_id", claims.UserID).Msg("token revoked")

	return nil
}

func (s *AuthService) publish(u *domain.User) {
	if s.directory == nil {
		return
	}
	s.directory.Enqueue(domain.ClientFromUser(u))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func observe(operation string, err error) {
	metrics.AuthAttemptsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
