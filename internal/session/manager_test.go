package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clientdesk/portal/internal/core/domain"
	"github.com/clientdesk/portal/internal/core/ports"
	"github.com/clientdesk/portal/internal/infrastructure/local"
	"github.com/clientdesk/portal/internal/infrastructure/store"
	"github.com/clientdesk/portal/internal/pkg/token"
)

type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n.Title)
	}
	return out
}

func (r *recorder) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notes[len(r.notes)-1]
}

type brokenDirectory struct{}

func (brokenDirectory) Upsert(context.Context, domain.Client) (*domain.Client, error) {
	return nil, errors.New("directory down")
}
func (brokenDirectory) List(context.Context) []domain.Client { return []domain.Client{} }

type harness struct {
	kv        *store.MemoryStore
	tokens    *token.Issuer
	backend   ports.SessionBackend
	directory ports.Directory
	notes     *recorder
}

func newHarness() *harness {
	kv := store.NewMemoryStore()
	tokens := token.NewIssuer("test-secret", time.Hour)
	return &harness{
		kv:        kv,
		tokens:    tokens,
		backend:   local.NewBackend(kv, tokens, 0, zerolog.Nop()),
		directory: local.NewDirectory(kv, zerolog.Nop()),
		notes:     &recorder{},
	}
}

// manager returns an initialized manager over the harness state.
func (h *harness) manager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(h.backend, h.directory, h.kv, h.notes, zerolog.Nop())
	waitInit(t, m)
	return m
}

func waitInit(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case <-m.Initialize(context.Background()):
	case <-time.After(5 * time.Second):
		t.Fatal("initialization did not finish")
	}
}

func persisted(t *testing.T, kv ports.KVStore, key string) []byte {
	t.Helper()
	v, err := kv.Get(context.Background(), key)
	require.NoError(t, err)
	return v
}

func TestManager_SignupThenLoginReturnsSameUser(t *testing.T) {
	h := newHarness()
	m := h.manager(t)
	ctx := context.Background()

	created, err := m.Signup(ctx, "Ann", "ann@x.com", "pw")
	require.NoError(t, err)
	m.Logout(ctx)

	logged, err := m.Login(ctx, "ann@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, created.ID, logged.ID)
	assert.Equal(t, "Ann", logged.Name)

	snap := m.Snapshot()
	assert.True(t, snap.Authenticated())
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.NotEmpty(t, snap.Token)
	assert.Equal(t, snap.Token, string(persisted(t, h.kv, KeyToken)))

	clients := h.directory.List(ctx)
	require.Len(t, clients, 1)
	assert.Equal(t, "ann@x.com", clients[0].Email)
	assert.Equal(t, "Ann", clients[0].Name)

	assert.Equal(t, []string{"Registration successful", "Logged out", "Login successful"}, h.notes.titles())
	assert.Equal(t, "Welcome back!", h.notes.last().Description)
}

func TestManager_DuplicateSignup(t *testing.T) {
	h := newHarness()
	m := h.manager(t)
	ctx := context.Background()

	first, err := m.Signup(ctx, "Ann", "ann@x.com", "pw")
	require.NoError(t, err)
	m.Logout(ctx)

	_, err = m.Signup(ctx, "Imposter", "ann@x.com", "other")
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	assert.False(t, m.Snapshot().Authenticated())
	assert.Nil(t, persisted(t, h.kv, KeyToken))

	n := h.notes.last()
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, "Registration failed", n.Title)

	again, err := m.Login(ctx, "ann@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Ann", again.Name)

	_, err = m.Login(ctx, "ann@x.com", "other")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestManager_LoginUnknownUser(t *testing.T) {
	h := newHarness()
	m := h.manager(t)

	_, err := m.Login(context.Background(), "nobody@x.com", "pw")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Nil(t, persisted(t, h.kv, KeyToken))
	assert.Equal(t, StateUnauthenticated, m.Snapshot().State)
	assert.Equal(t, "Login failed", h.notes.last().Title)
}

func TestManager_Logout(t *testing.T) {
	h := newHarness()
	m := h.manager(t)
	ctx := context.Background()

	_, err := m.Signup(ctx, "Ann", "ann@x.com", "pw")
	require.NoError(t, err)

	m.Logout(ctx)

	snap := m.Snapshot()
	assert.False(t, snap.Authenticated())
	assert.Empty(t, snap.Token)
	assert.Empty(t, m.Token())
	assert.Nil(t, persisted(t, h.kv, KeyToken))
	assert.Nil(t, persisted(t, h.kv, KeyUser))

	// logging out twice is harmless
	m.Logout(ctx)
	assert.Equal(t, "Logged out", h.notes.last().Title)
}

func TestManager_UpdateProfile(t *testing.T) {
	h := newHarness()
	m := h.manager(t)
	ctx := context.Background()

	before, err := m.Signup(ctx, "Ann", "ann@x.com", "pw")
	require.NoError(t, err)

	phone := "555-0100"
	after, err := m.UpdateProfile(ctx, domain.ProfileUpdate{Phone: &phone})
	require.NoError(t, err)

	assert.Equal(t, "555-0100", after.Phone)
	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, before.Email, after.Email)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, "555-0100", m.Snapshot().User.Phone)
	assert.Contains(t, string(persisted(t, h.kv, KeyUser)), "555-0100")

	clients := h.directory.List(ctx)
	require.Len(t, clients, 1)
	assert.Equal(t, "555-0100", clients[0].Phone)
	assert.Equal(t, "Profile updated", h.notes.last().Title)
}

// heldBackend completes UpdateProfile on the wrapped backend, then holds the
// result until released.
type heldBackend struct {
	ports.SessionBackend
	entered chan struct{}
	release chan struct{}
}

func (b *heldBackend) UpdateProfile(ctx context.Context, tkn string, update domain.ProfileUpdate) (*domain.User, error) {
	u, err := b.SessionBackend.UpdateProfile(ctx, tkn, update)
	close(b.entered)
	<-b.release
	return u, err
}

func TestManager_UpdateProfileAfterLogoutIsNotPersisted(t *testing.T) {
	h := newHarness()
	held := &heldBackend{SessionBackend: h.backend, entered: make(chan struct{}), release: make(chan struct{})}
	h.backend = held
	m := h.manager(t)
	ctx := context.Background()

	_, err := m.Signup(ctx, "Ann", "ann@x.com", "pw")
	require.NoError(t, err)

	phone := "555-0100"
	done := make(chan error, 1)
	go func() {
		_, err := m.UpdateProfile(ctx, domain.ProfileUpdate{Phone: &phone})
		done <- err
	}()

	select {
	case <-held.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("update did not reach the backend")
	}
	m.Logout(ctx)
	close(held.release)
	require.NoError(t, <-done)

	assert.Nil(t, m.Snapshot().User)
	assert.Nil(t, persisted(t, h.kv, KeyToken))
	assert.Nil(t, persisted(t, h.kv, KeyUser))

	clients := h.directory.List(ctx)
	require.Len(t, clients, 1)
	assert.Empty(t, clients[0].Phone)
}

func TestManager_UpdateProfileWithoutSession(t *testing.T) {
	h := newHarness()
	m := h.manager(t)

	name := "Ghost"
	_, err := m.UpdateProfile(context.Background(), domain.ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.Empty(t, h.notes.titles())
}

func TestManager_UpdateProfileRejected(t *testing.T) {
	h := newHarness()
	m := h.manager(t)
	ctx := context.Background()

	_, err := m.Signup(ctx, "Ann", "ann@x.com", "pw")
	require.NoError(t, err)

	blank := "  "
	_, err = m.UpdateProfile(ctx, domain.ProfileUpdate{Name: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, "Update failed", h.notes.last().Title)
	assert.Equal(t, "Ann", m.Snapshot().User.Name)
}

func TestManager_InitializeRestoresSession(t *testing.T) {
	h := newHarness()
	first := h.manager(t)
	created, err := first.Signup(context.Background(), "Ann", "ann@x.com", "pw")
	require.NoError(t, err)

	m := NewManager(h.backend, h.directory, h.kv, h.notes, zerolog.Nop())
	assert.True(t, m.Snapshot().Loading)

	waitInit(t, m)
	snap := m.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, StateAuthenticated, snap.State)
	require.NotNil(t, snap.User)
	assert.Equal(t, created.ID, snap.User.ID)
}

func TestManager_InitializeRejectsInvalidToken(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.kv.Set(ctx, KeyToken, []byte("not-a-token")))
	require.NoError(t, h.kv.Set(ctx, KeyUser, []byte(`{"id":"x"}`)))

	m := h.manager(t)

	snap := m.Snapshot()
	assert.Equal(t, StateUnauthenticated, snap.State)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Token)
	assert.Nil(t, persisted(t, h.kv, KeyToken))
	assert.Nil(t, persisted(t, h.kv, KeyUser))
}

func TestManager_InitializeRejectsOrphanedToken(t *testing.T) {
	h := newHarness()
	tkn, err := h.tokens.Issue("deleted-user")
	require.NoError(t, err)
	require.NoError(t, h.kv.Set(context.Background(), KeyToken, []byte(tkn)))

	m := h.manager(t)
	assert.Equal(t, StateUnauthenticated, m.Snapshot().State)
	assert.Nil(t, persisted(t, h.kv, KeyToken))
}

func TestManager_InitializeWithoutToken(t *testing.T) {
	h := newHarness()
	m := NewManager(h.backend, h.directory, h.kv, h.notes, zerolog.Nop())

	var states []State
	var mu sync.Mutex
	m.Subscribe(func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	done := m.Initialize(context.Background())
	assert.Equal(t, done, m.Initialize(context.Background()), "initialize must be idempotent")
	waitInit(t, m)

	snap := m.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, StateUnauthenticated, snap.State)

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, states, StateVerifying)
}

func TestManager_InitializeStorageFailure(t *testing.T) {
	h := newHarness()
	m := NewManager(h.backend, h.directory, failingKV{}, h.notes, zerolog.Nop())
	waitInit(t, m)

	snap := m.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, StateUnauthenticated, snap.State)
}

func TestManager_DirectoryFailureIsSwallowed(t *testing.T) {
	h := newHarness()
	m := NewManager(h.backend, brokenDirectory{}, h.kv, h.notes, zerolog.Nop())
	waitInit(t, m)

	user, err := m.Signup(context.Background(), "Ann", "ann@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
	assert.True(t, m.Snapshot().Authenticated())
}

func TestManager_SubscribeObservesTransitions(t *testing.T) {
	h := newHarness()
	m := h.manager(t)

	var mu sync.Mutex
	var snaps []Snapshot
	unsubscribe := m.Subscribe(func(s Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	_, err := m.Signup(context.Background(), "Ann", "ann@x.com", "pw")
	require.NoError(t, err)

	mu.Lock()
	require.NotEmpty(t, snaps)
	assert.True(t, snaps[0].Loading, "operation start is published")
	final := snaps[len(snaps)-1]
	count := len(snaps)
	mu.Unlock()

	assert.False(t, final.Loading)
	assert.True(t, final.Authenticated())

	unsubscribe()
	m.Logout(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, snaps, count)
}

func TestManager_SnapshotIsACopy(t *testing.T) {
	h := newHarness()
	m := h.manager(t)

	_, err := m.Signup(context.Background(), "Ann", "ann@x.com", "pw")
	require.NoError(t, err)

	snap := m.Snapshot()
	snap.User.Name = "Mallory"
	assert.Equal(t, "Ann", m.Snapshot().User.Name)
}

func TestManager_CancelledContextStillCompletes(t *testing.T) {
	h := newHarness()
	m := h.manager(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Signup(ctx, "Ann", "ann@x.com", "pw")
	require.NoError(t, err)
	assert.True(t, m.Snapshot().Authenticated())
}

func TestManager_ConcurrentSignups(t *testing.T) {
	h := newHarness()
	m := h.manager(t)

	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}
	var wg sync.WaitGroup
	for _, email := range emails {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Signup(context.Background(), "User", email, "pw")
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.False(t, snap.Loading)
	assert.True(t, snap.Authenticated())
	assert.Contains(t, emails, snap.User.Email)
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk error") }
func (failingKV) Set(context.Context, string, []byte) error   { return errors.New("disk error") }
func (failingKV) Remove(context.Context, string) error        { return errors.New("disk error") }
