package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/utilityops/meter-api/internal/api/metrics"
	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrClosed is returned by Enqueue once the dispatcher stopped accepting work.
var ErrClosed = errors.New("dispatcher closed")

// Dispatcher routes batch readings to a fixed set of workers using consistent
// hashing on the EAN, so readings for one meter are applied in submission order.
type Dispatcher struct {
	workers []chan ports.ReadingInput
	service ports.ReadingService
	log     zerolog.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.ReadingService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.ReadingInput, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.ReadingInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled or
// after Close once their channel is drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends a reading to the worker responsible for its EAN. It blocks
// while that worker's buffer is full, until ctx is done.
func (d *Dispatcher) Enqueue(ctx context.Context, in ports.ReadingInput) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	idx := d.shardIndex(in.EAN)
	select {
	case d.workers[idx] <- in:
		metrics.ReadingsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnqueueBatch enqueues multiple readings preserving per-meter ordering.
func (d *Dispatcher) EnqueueBatch(ctx context.Context, readings []ports.ReadingInput) error {
	for _, r := range readings {
		if err := d.Enqueue(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Close stops accepting readings. Workers finish what is already queued.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// shardIndex maps an EAN deterministically to a worker index.
func (d *Dispatcher) shardIndex(ean string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ean))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.ReadingInput) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-ch:
			if !ok {
				return
			}
			metrics.ReadingsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.process(ctx, id, in)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, workerID int, in ports.ReadingInput) {
	start := time.Now()
	err := d.service.Process(ctx, in)
	if err != nil {
		metrics.ReadingProcessingDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		metrics.ReadingsErrorsTotal.WithLabelValues(failureReason(err)).Inc()
		d.log.Error().Err(err).
			Str("ean", in.EAN).
			Str("batch_id", in.BatchID).
			Int("worker_id", workerID).
			Msg("reading processing failed")
		return
	}
	metrics.ReadingProcessingDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	metrics.ReadingsProcessedTotal.WithLabelValues(string(domain.SourceBatch)).Inc()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrMeterNotFound):
		return "meter_not_found"
	case errors.Is(err, domain.ErrReadingMustIncrease):
		return "reading_must_increase"
	}
	return "update_failed"
}
