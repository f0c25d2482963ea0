// Package session owns the client-side authentication state: the current
// user, its token, and the transitions between them.
//
// A Manager moves between three states. It starts Unauthenticated, or
// Verifying when a token was persisted by an earlier run; verification ends
// in Authenticated or back in Unauthenticated. Login and Signup lead to
// Authenticated, Logout to Unauthenticated.
//
// Operations are not cancellable once started. Cancelling the caller's
// context only stops the caller from waiting; backend, store and directory
// calls run to completion on a detached context.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clientdesk/portal/internal/core/domain"
	"github.com/clientdesk/portal/internal/core/ports"
)

// Store keys of the persisted session.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

type State int

const (
	StateUnauthenticated State = iota
	StateVerifying
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	User    *domain.User
	Token   string
	State   State
	Loading bool
}

// Authenticated reports whether a user is resolved.
func (s Snapshot) Authenticated() bool { return s.User != nil }

type Manager struct {
	backend   ports.SessionBackend
	directory ports.Directory
	store     ports.KVStore
	notifier  Notifier
	log       zerolog.Logger

	// persistMu orders writes of the persisted user with Logout clearing
	// the store. Take it before mu.
	persistMu sync.Mutex

	mu           sync.RWMutex
	user         *domain.User
	token        string
	state        State
	initializing bool
	inflight     int
	observers    map[int]func(Snapshot)
	nextObserver int

	initOnce sync.Once
	initDone chan struct{}
}

// NewManager returns a Manager in the loading state; call Initialize to
// restore a persisted session. notifier may be nil.
func NewManager(
	backend ports.SessionBackend,
	directory ports.Directory,
	store ports.KVStore,
	notifier Notifier,
	log zerolog.Logger,
) *Manager {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Manager{
		backend:      backend,
		directory:    directory,
		store:        store,
		notifier:     notifier,
		log:          log,
		initializing: true,
		observers:    make(map[int]func(Snapshot)),
		initDone:     make(chan struct{}),
	}
}

// Initialize restores the persisted session in the background and returns a
// channel closed once loading has finished. Later calls return the same
// channel.
func (m *Manager) Initialize(ctx context.Context) <-chan struct{} {
	m.initOnce.Do(func() {
		go m.initialize(context.WithoutCancel(ctx))
	})
	return m.initDone
}

func (m *Manager) initialize(ctx context.Context) {
	defer close(m.initDone)
	defer func() {
		m.mu.Lock()
		m.initializing = false
		m.mu.Unlock()
		m.publish()
	}()

	raw, err := m.store.Get(ctx, KeyToken)
	if err != nil {
		m.log.Error().Err(errors.Join(domain.ErrStorageRead, err)).Msg("read persisted token failed")
		return
	}
	if len(raw) == 0 {
		return
	}
	tkn := string(raw)

	m.mu.Lock()
	if m.token != "" {
		// a login finished first
		m.mu.Unlock()
		return
	}
	m.token = tkn
	m.state = StateVerifying
	m.mu.Unlock()
	m.publish()

	user, err := m.backend.Verify(ctx, tkn)
	if err != nil {
		m.log.Warn().Err(err).Msg("persisted session rejected")
		if m.resetIfCurrent(tkn) {
			m.clearPersisted(ctx)
		}
		return
	}

	m.persistMu.Lock()
	m.mu.Lock()
	current := m.token == tkn
	if current {
		m.user = user
		m.state = StateAuthenticated
	}
	m.mu.Unlock()
	if current {
		m.persistUser(ctx, user)
	}
	m.persistMu.Unlock()

	if current {
		m.log.Info().Str("user_id", user.ID).Msg("session restored")
	}
}

// Login authenticates with email and password.
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.User, error) {
	ctx = context.WithoutCancel(ctx)
	m.begin()
	defer m.end()

	res, err := m.backend.Login(ctx, email, password)
	if err != nil {
		m.fail("Login failed", err)
		return nil, err
	}

	m.establish(ctx, res)
	m.notifier.Notify(Notification{Level: LevelInfo, Title: "Login successful", Description: "Welcome back!"})
	return cloneUser(res.User), nil
}

// Signup creates an account and signs into it.
func (m *Manager) Signup(ctx context.Context, name, email, password string) (*domain.User, error) {
	ctx = context.WithoutCancel(ctx)
	m.begin()
	defer m.end()

	res, err := m.backend.Register(ctx, name, email, password)
	if err != nil {
		m.fail("Registration failed", err)
		return nil, err
	}

	m.establish(ctx, res)
	m.notifier.Notify(Notification{Level: LevelInfo, Title: "Registration successful", Description: "Your account has been created!"})
	return cloneUser(res.User), nil
}

// Logout ends the session. It always succeeds; failures to clear the store
// or revoke the token remotely are logged.
func (m *Manager) Logout(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	m.persistMu.Lock()
	m.mu.Lock()
	tkn := m.token
	m.token = ""
	m.user = nil
	m.state = StateUnauthenticated
	m.mu.Unlock()
	m.clearPersisted(ctx)
	m.persistMu.Unlock()

	if tkn != "" {
		if err := m.backend.Logout(ctx, tkn); err != nil {
			m.log.Warn().Err(err).Msg("backend logout failed")
		}
	}

	m.notifier.Notify(Notification{Level: LevelInfo, Title: "Logged out", Description: "You have been logged out successfully."})
	m.publish()
}

// UpdateProfile merges update into the current user. The email address
// cannot be changed.
func (m *Manager) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	ctx = context.WithoutCancel(ctx)

	m.mu.RLock()
	tkn, current := m.token, m.user
	m.mu.RUnlock()
	if current == nil || tkn == "" {
		return nil, domain.ErrNotAuthenticated
	}

	m.begin()
	defer m.end()

	updated, err := m.backend.UpdateProfile(ctx, tkn, update)
	if err != nil {
		m.fail("Update failed", err)
		return nil, err
	}
	updated.Email = current.Email

	// a Logout that finished meanwhile must not be undone
	m.persistMu.Lock()
	m.mu.Lock()
	live := m.token == tkn
	if live {
		m.user = updated
	}
	m.mu.Unlock()
	if live {
		m.persistUser(ctx, updated)
	}
	m.persistMu.Unlock()

	if live {
		m.mirror(ctx, updated)
	}
	m.notifier.Notify(Notification{Level: LevelInfo, Title: "Profile updated", Description: "Your profile has been updated successfully."})
	return cloneUser(updated), nil
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Token returns the current session token, or "" without a session.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change and must not block.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextObserver
	m.nextObserver++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) establish(ctx context.Context, res *ports.AuthResult) {
	if err := m.store.Set(ctx, KeyToken, []byte(res.Token)); err != nil {
		m.log.Error().Err(err).Msg("persist token failed")
	}

	m.mu.Lock()
	m.token = res.Token
	m.user = cloneUser(res.User)
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.persistUser(ctx, res.User)
	m.mirror(ctx, res.User)
}

// mirror upserts the directory record of u. Failures are logged only.
func (m *Manager) mirror(ctx context.Context, u *domain.User) {
	if _, err := m.directory.Upsert(ctx, domain.ClientFromUser(u)); err != nil {
		m.log.Warn().Err(err).Str("user_id", u.ID).Msg("directory upsert failed")
	}
}

func (m *Manager) persistUser(ctx context.Context, u *domain.User) {
	raw, err := json.Marshal(u)
	if err != nil {
		m.log.Error().Err(err).Msg("encode user failed")
		return
	}
	if err := m.store.Set(ctx, KeyUser, raw); err != nil {
		m.log.Error().Err(err).Msg("persist user failed")
	}
}

func (m *Manager) clearPersisted(ctx context.Context) {
	for _, key := range []string{KeyToken, KeyUser} {
		if err := m.store.Remove(ctx, key); err != nil {
			m.log.Error().Err(err).Str("key", key).Msg("clear persisted session failed")
		}
	}
}

// resetIfCurrent drops the session if tkn is still its token.
func (m *Manager) resetIfCurrent(tkn string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != tkn {
		return false
	}
	m.token = ""
	m.user = nil
	m.state = StateUnauthenticated
	return true
}

func (m *Manager) fail(title string, err error) {
	m.log.Debug().Err(err).Str("operation", title).Msg("session operation failed")
	m.notifier.Notify(Notification{Level: LevelError, Title: title, Description: describe(err)})
}

func (m *Manager) begin() {
	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()
	m.publish()
}

func (m *Manager) end() {
	m.mu.Lock()
	m.inflight--
	m.mu.Unlock()
	m.publish()
}

func (m *Manager) publish() {
	m.mu.RLock()
	snap := m.snapshotLocked()
	observers := make([]func(Snapshot), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.RUnlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		User:    cloneUser(m.user),
		Token:   m.token,
		State:   m.state,
		Loading: m.initializing || m.inflight > 0,
	}
}

// describe prefers a message meant for the user, such as the text of an API
// error response, over the wrapped error chain.
func describe(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return err.Error()
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
