package local

import (
	"context"
	"sync"
	"time"

	"github.com/clientdesk/portal/internal/core/domain"
	"github.com/clientdesk/portal/internal/core/ports"
)

// storedUser keeps the password hash, which domain.User hides from JSON.
type storedUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Profession   string    `json:"profession,omitempty"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toStored(u *domain.User) storedUser {
	return storedUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		Address:      u.Address,
		Profession:   u.Profession,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (s storedUser) toDomain() *domain.User {
	return &domain.User{
		ID:           s.ID,
		Name:         s.Name,
		Email:        s.Email,
		Phone:        s.Phone,
		Address:      s.Address,
		Profession:   s.Profession,
		PasswordHash: s.PasswordHash,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// UserRepository implements ports.UserRepository over the "users" key.
type UserRepository struct {
	kv ports.KVStore
	mu sync.Mutex
}

func NewUserRepository(kv ports.KVStore) *UserRepository {
	return &UserRepository{kv: kv}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, func(u storedUser) bool { return u.Email == email })
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.find(ctx, func(u storedUser) bool { return u.ID == id })
}

func (r *UserRepository) find(ctx context.Context, match func(storedUser) bool) (*domain.User, error) {
	users, err := load[storedUser](ctx, r.kv, KeyUsers)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if match(u) {
			return u.toDomain(), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := load[storedUser](ctx, r.kv, KeyUsers)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}
	return save(ctx, r.kv, KeyUsers, append(users, toStored(user)))
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := load[storedUser](ctx, r.kv, KeyUsers)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == user.ID {
			// email and password hash are fixed after signup
			updated := toStored(user)
			updated.Email = users[i].Email
			updated.PasswordHash = users[i].PasswordHash
			users[i] = updated
			return save(ctx, r.kv, KeyUsers, users)
		}
	}
	return domain.ErrUserNotFound
}
