package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clientdesk/portal/internal/core/domain"
)

type recordingDirectory struct {
	mu    sync.Mutex
	seen  map[string][]string
	fail  bool
	count int
}

func newRecordingDirectory() *recordingDirectory {
	return &recordingDirectory{seen: make(map[string][]string)}
}

func (r *recordingDirectory) Upsert(_ context.Context, c domain.Client) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	if r.fail {
		return nil, errors.New("store down")
	}
	r.seen[c.Email] = append(r.seen[c.Email], c.Company)
	return &c, nil
}

func (r *recordingDirectory) List(context.Context) []domain.Client { return nil }

func (r *recordingDirectory) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDispatcher_PreservesOrderPerEmail(t *testing.T) {
	dir := newRecordingDirectory()
	d := NewDispatcher(4, dir, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	companies := []string{"A", "B", "C", "D", "E"}
	for _, company := range companies {
		d.Enqueue(domain.Client{Email: "ann@x.com", Company: company})
		d.Enqueue(domain.Client{Email: "bob@x.com", Company: company})
	}

	waitFor(t, func() bool { return dir.total() == 2*len(companies) })

	dir.mu.Lock()
	defer dir.mu.Unlock()
	for _, email := range []string{"ann@x.com", "bob@x.com"} {
		got := dir.seen[email]
		if len(got) != len(companies) {
			t.Fatalf("%s: expected %d upserts, got %d", email, len(companies), len(got))
		}
		for i := range companies {
			if got[i] != companies[i] {
				t.Fatalf("%s: upsert %d applied out of order: %v", email, i, got)
			}
		}
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, newRecordingDirectory(), zerolog.Nop())

	first := d.shardIndex("Ann@X.com ")
	if first != d.shardIndex("ann@x.com") {
		t.Fatal("same email with different case must map to the same worker")
	}
	if first < 0 || first >= 8 {
		t.Fatalf("index out of range: %d", first)
	}
}

func TestDispatcher_DefaultWorkers(t *testing.T) {
	d := NewDispatcher(0, newRecordingDirectory(), zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
}

func TestDispatcher_FailureDoesNotStopWorker(t *testing.T) {
	dir := newRecordingDirectory()
	dir.fail = true
	d := NewDispatcher(1, dir, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Enqueue(domain.Client{Email: "a@x.com"})
	d.Enqueue(domain.Client{Email: "b@x.com"})

	waitFor(t, func() bool { return dir.total() == 2 })
}

func TestDispatcher_DrainsOnShutdown(t *testing.T) {
	dir := newRecordingDirectory()
	d := NewDispatcher(2, dir, zerolog.Nop())

	for i := 0; i < 10; i++ {
		d.Enqueue(domain.Client{Email: "ann@x.com", Company: "C"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Wait()

	if dir.total() != 10 {
		t.Fatalf("expected queued records to be applied on shutdown, got %d", dir.total())
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	dir := newRecordingDirectory()
	d := NewDispatcher(1, dir, zerolog.Nop())

	// not started: nothing consumes the queue
	for i := 0; i < channelBuffer+5; i++ {
		d.Enqueue(domain.Client{Email: "ann@x.com"})
	}
	if got := len(d.workers[0]); got != channelBuffer {
		t.Fatalf("expected queue capped at %d, got %d", channelBuffer, got)
	}
}
