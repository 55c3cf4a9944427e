package registry

import (
	"context"
	"time"

	"doc-registry/internal/model"
)

// Registrar answers whether an account is registered with the identity service.
type Registrar interface {
	IsRegistered(ctx context.Context, account model.Account) (bool, error)
}

// FeeCollector moves native tokens between accounts.
type FeeCollector interface {
	Transfer(ctx context.Context, amount int64, from, to model.Account) error
}

// Clock returns the current point used for timestamps and expiry checks.
// It must be monotonic across calls.
type Clock interface {
	Now() uint64
}

// Recorder receives events after their mutations are committed.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// UnixClock reports unix time in seconds. It reads the wall clock once and
// advances by the monotonic reading afterwards, so steps of the system clock
// never move it backwards.
type UnixClock struct {
	origin time.Time
}

func NewUnixClock() *UnixClock {
	return &UnixClock{origin: time.Now()}
}

func (c *UnixClock) Now() uint64 {
	return uint64(c.origin.Add(time.Since(c.origin)).Unix())
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Event) {}
