package ingest

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedChannel wraps a Channel with an additional producer-side
// rate limit, layered on top of the channel's own byte quota: the quota
// bounds how many bytes may be in flight at once, the limiter bounds how
// fast new bytes may enter regardless of how much quota is free.
type RateLimitedChannel[T any] struct {
	ch      *Channel[T]
	limiter *rate.Limiter
}

// NewRateLimitedChannel wraps ch with a token-bucket limiter allowing
// bytesPerSecond sustained throughput and a burst of up to burstBytes.
func NewRateLimitedChannel[T any](ch *Channel[T], bytesPerSecond float64, burstBytes int) *RateLimitedChannel[T] {
	return &RateLimitedChannel[T]{
		ch:      ch,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burstBytes),
	}
}

// Send waits for both the rate limiter and the underlying channel's byte
// quota before enqueuing val.
func (c *RateLimitedChannel[T]) Send(ctx context.Context, val T, sizeBytes int64) error {
	if sizeBytes > int64(c.limiter.Burst()) {
		return fmt.Errorf("ingest: message of %d bytes exceeds rate limiter burst of %d", sizeBytes, c.limiter.Burst())
	}
	if err := c.limiter.WaitN(ctx, int(sizeBytes)); err != nil {
		return err
	}
	return c.ch.Send(ctx, val, sizeBytes)
}

// Recv delegates to the underlying channel; receiving is never rate
// limited, only producing is.
func (c *RateLimitedChannel[T]) Recv(ctx context.Context) (T, error) {
	return c.ch.Recv(ctx)
}

// Close closes the underlying channel.
func (c *RateLimitedChannel[T]) Close() {
	c.ch.Close()
}

// CurrentBytes, Quota, and Len pass straight through to the underlying
// channel; the rate limiter has no byte-usage state of its own to report.
func (c *RateLimitedChannel[T]) CurrentBytes() int64 { return c.ch.CurrentBytes() }
func (c *RateLimitedChannel[T]) Quota() int64        { return c.ch.Quota() }
func (c *RateLimitedChannel[T]) Len() int            { return c.ch.Len() }
