package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vendorhub/storefront/internal/api/metrics"
	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// Dispatcher writes moderation events to the audit repository on a fixed set
// of workers. Events are sharded by product id, so one product's history is
// written in decision order.
type Dispatcher struct {
	workers []chan domain.ModerationEvent
	audit   ports.AuditRepository
	log     zerolog.Logger

	wg sync.WaitGroup
	// mu guards closed; Enqueue holds it shared so Close never closes a
	// channel mid-send.
	mu     sync.RWMutex
	closed bool
}

var _ ports.ModerationRecorder = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers workers, or
// defaultWorkers when numWorkers <= 0.
func NewDispatcher(numWorkers int, audit ports.AuditRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.ModerationEvent, numWorkers),
		audit:   audit,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ModerationEvent, channelBuffer)
	}
	return d
}

// Start launches the workers. They drain their channels until Close.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Enqueue hands an event to the worker owning its product. It blocks only
// when that worker's buffer is full. Events arriving after Close are dropped.
func (d *Dispatcher) Enqueue(event domain.ModerationEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().
			Str("product_id", event.ProductID).
			Str("decision", string(event.Decision)).
			Msg("audit dispatcher closed, moderation event dropped")
		return
	}
	idx := d.shardIndex(event.ProductID)
	d.workers[idx] <- event
	metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// Close stops accepting events and waits until every queued event is
// written or ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) shardIndex(productID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(productID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(id int, ch <-chan domain.ModerationEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for event := range ch {
		metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
		d.write(id, event)
	}
}

func (d *Dispatcher) write(worker int, event domain.ModerationEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	start := time.Now()
	err := d.audit.InsertModerationEvent(ctx, &event)
	metrics.AuditWriteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AuditEventsTotal.WithLabelValues("error").Inc()
		d.log.Error().Err(err).
			Str("product_id", event.ProductID).
			Str("decision", string(event.Decision)).
			Int("worker_id", worker).
			Msg("moderation audit write failed")
		return
	}
	metrics.AuditEventsTotal.WithLabelValues("written").Inc()
}
