package journal

import (
	"context"
	"doc-registry/internal/registry"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const DefaultQueueSize = 256

// Entry is a committed registry event together with the identifier it is
// published under.
type Entry struct {
	ID         string
	RecordedAt time.Time
	Event      registry.Event
}

// Sink publishes entries to an external system.
type Sink interface {
	Name() string
	Handle(ctx context.Context, entry Entry) error
}

// Journal fans committed registry events out to the sinks on a background
// worker. Recording never blocks the registry: when the queue is full the
// entry is dropped and counted.
type Journal struct {
	logger *zap.Logger
	sinks  []Sink
	queue  chan Entry

	mu     sync.RWMutex
	closed bool

	dropped atomic.Uint64
	failed  atomic.Uint64

	done chan struct{}
}

func New(logger *zap.Logger, queueSize int, sinks ...Sink) *Journal {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	j := &Journal{
		logger: logger,
		sinks:  sinks,
		queue:  make(chan Entry, queueSize),
		done:   make(chan struct{}),
	}
	go j.run()

	return j
}

// Record implements registry.Recorder.
func (j *Journal) Record(ctx context.Context, event registry.Event) {
	entry := Entry{
		ID:         uuid.NewString(),
		RecordedAt: time.Now(),
		Event:      event,
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.logger.Warn("journal closed, event dropped", zap.String("type", string(event.Type)))
		return
	}

	select {
	case j.queue <- entry:
	default:
		j.dropped.Add(1)
		j.logger.Warn("journal queue full, event dropped",
			zap.String("id", entry.ID), zap.String("type", string(event.Type)))
	}
}

func (j *Journal) run() {
	defer close(j.done)

	for entry := range j.queue {
		if err := j.publish(entry); err != nil {
			j.failed.Add(1)
			j.logger.Error("failed to publish the event",
				zap.String("id", entry.ID),
				zap.String("type", string(entry.Event.Type)),
				zap.Error(err))
		}
	}
}

func (j *Journal) publish(entry Entry) error {
	var err error
	for _, sink := range j.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if sinkErr := sink.Handle(ctx, entry); sinkErr != nil {
			err = multierr.Append(err, &SinkError{Sink: sink.Name(), Err: sinkErr})
		}
		cancel()
	}
	return err
}

// Close stops accepting events and waits until the queued ones are published
// or ctx is done.
func (j *Journal) Close(ctx context.Context) error {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.queue)
	}
	j.mu.Unlock()

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns the number of events lost because the queue was full.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

// Failed returns the number of entries at least one sink failed to handle.
func (j *Journal) Failed() uint64 {
	return j.failed.Load()
}

type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return e.Sink + ": " + e.Err.Error()
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
