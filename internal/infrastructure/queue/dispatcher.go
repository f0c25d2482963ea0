package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clientdesk/portal/internal/api/metrics"
	"github.com/clientdesk/portal/internal/core/domain"
	"github.com/clientdesk/portal/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher mirrors user records into the client directory off the request
// path. Records are routed to a fixed set of workers by a hash of the email,
// so upserts for the same email are applied in the order they were enqueued.
type Dispatcher struct {
	workers   []chan domain.Client
	directory ports.Directory
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, directory ports.Directory, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan domain.Client, numWorkers),
		directory: directory,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Client, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. When ctx is cancelled each worker
// drains what is already queued and exits; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands c to the worker responsible for its email. It never blocks:
// when that worker's queue is full the record is dropped and logged.
func (d *Dispatcher) Enqueue(c domain.Client) {
	idx := d.shardIndex(c.Email)
	select {
	case d.workers[idx] <- c:
		metrics.DirectoryQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.DirectoryUpsertsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().Str("email", c.Email).Int("worker_id", idx).Msg("directory queue full, record dropped")
	}
}

// shardIndex maps an email deterministically to a worker index.
func (d *Dispatcher) shardIndex(email string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Client) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx), id, ch)
			return
		case c := <-ch:
			d.apply(ctx, id, c)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context, id int, ch <-chan domain.Client) {
	for {
		select {
		case c := <-ch:
			d.apply(ctx, id, c)
		default:
			return
		}
	}
}

func (d *Dispatcher) apply(ctx context.Context, id int, c domain.Client) {
	metrics.DirectoryQueueDepth.WithLabelValues(strconv.Itoa(id)).Dec()
	if _, err := d.directory.Upsert(ctx, c); err != nil {
		d.log.Error().Err(err).
			Str("email", c.Email).
			Int("worker_id", id).
			Msg("directory upsert failed")
	}
}
