// Package ingest provides the transport-agnostic primitives producers use
// to hand rows to the store: a byte-quota-bounded channel, a dynamic
// select over an arbitrary number of receivers, and a set that
// multiplexes many such receivers while auto-pruning disconnected ones.
package ingest

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Send and Recv once the channel has been closed.
var ErrClosed = errors.New("ingest: channel closed")

type sizedMsg[T any] struct {
	val  T
	size int64
}

// Channel is a FIFO channel bounded by total bytes in flight rather than
// message count: a sender supplies the byte size of each message, and
// Send blocks until enough of the byte budget is free. This lets one
// channel carry a mix of small and large messages without either
// starving the large ones or letting them exhaust memory.
type Channel[T any] struct {
	name     string
	sem      *semaphore.Weighted
	quota    int64
	inFlight atomic.Int64
	ch       chan sizedMsg[T]
	done     chan struct{}
}

// NewChannel creates a byte-quota channel. capacityBytes is the total
// size, summed across all in-flight (sent but not yet received)
// messages, the channel will admit before Send blocks.
func NewChannel[T any](name string, capacityBytes int64) *Channel[T] {
	return &Channel[T]{
		name:  name,
		sem:   semaphore.NewWeighted(capacityBytes),
		quota: capacityBytes,
		// The slot count is generous and not itself a meaningful bound:
		// the byte semaphore is what actually throttles senders.
		ch:   make(chan sizedMsg[T], 4096),
		done: make(chan struct{}),
	}
}

// Name returns the channel's label, used for logging and metrics.
func (c *Channel[T]) Name() string { return c.name }

// CurrentBytes returns the total size of messages currently in flight
// (acquired from the byte quota but not yet received). semaphore.Weighted
// doesn't expose its outstanding acquired weight, so this is tracked
// alongside every Acquire/Release with its own counter.
func (c *Channel[T]) CurrentBytes() int64 { return c.inFlight.Load() }

// Quota returns the channel's total byte budget, as given to NewChannel.
func (c *Channel[T]) Quota() int64 { return c.quota }

// Len returns the number of messages currently buffered, waiting to be
// received.
func (c *Channel[T]) Len() int { return len(c.ch) }

// Send blocks until sizeBytes of budget is free and the value is
// enqueued, or until ctx is done or the channel is closed.
func (c *Channel[T]) Send(ctx context.Context, val T, sizeBytes int64) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	if err := c.sem.Acquire(ctx, sizeBytes); err != nil {
		return err
	}
	c.inFlight.Add(sizeBytes)
	select {
	case c.ch <- sizedMsg[T]{val: val, size: sizeBytes}:
		return nil
	case <-c.done:
		c.inFlight.Add(-sizeBytes)
		c.sem.Release(sizeBytes)
		return ErrClosed
	case <-ctx.Done():
		c.inFlight.Add(-sizeBytes)
		c.sem.Release(sizeBytes)
		return ctx.Err()
	}
}

// TrySend enqueues val without blocking, returning false if the byte
// budget or the channel's slot buffer is currently full.
func (c *Channel[T]) TrySend(val T, sizeBytes int64) bool {
	if !c.sem.TryAcquire(sizeBytes) {
		return false
	}
	c.inFlight.Add(sizeBytes)
	select {
	case c.ch <- sizedMsg[T]{val: val, size: sizeBytes}:
		return true
	default:
		c.inFlight.Add(-sizeBytes)
		c.sem.Release(sizeBytes)
		return false
	}
}

// Recv blocks until a value is available, ctx is done, or the channel
// is closed and drained. c.ch itself is never closed — Close only
// signals c.done — so a buffered message sent just before Close is
// still delivered rather than lost to a send-on-closed-channel panic.
func (c *Channel[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case m := <-c.ch:
		c.inFlight.Add(-m.size)
		c.sem.Release(m.size)
		return m.val, nil
	case <-c.done:
		select {
		case m := <-c.ch:
			c.inFlight.Add(-m.size)
			c.sem.Release(m.size)
			return m.val, nil
		default:
			return zero, ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// TryRecv returns a value without blocking, with ok false if none is
// currently available.
func (c *Channel[T]) TryRecv() (T, bool) {
	var zero T
	select {
	case m := <-c.ch:
		c.inFlight.Add(-m.size)
		c.sem.Release(m.size)
		return m.val, true
	default:
		return zero, false
	}
}

// rawChan exposes the underlying receive channel for Select, which
// needs a raw channel to multiplex over. Unexported: callers outside
// this package use Recv/TryRecv, never the raw sized-message wire.
func (c *Channel[T]) rawChan() <-chan sizedMsg[T] { return c.ch }

// Close marks the channel closed: pending Sends fail with ErrClosed,
// and Recv returns ErrClosed once the channel is drained. Close is
// idempotent-unsafe to call twice; callers own a single Close call per
// channel, matching a standard Go channel's contract.
func (c *Channel[T]) Close() {
	close(c.done)
}
