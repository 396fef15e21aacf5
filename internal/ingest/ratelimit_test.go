package ingest

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitedChannelSendRecvRoundTrip(t *testing.T) {
	ch := NewChannel[string]("rl", 1<<20)
	rl := NewRateLimitedChannel(ch, 1<<20, 1<<20)
	defer rl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rl.Send(ctx, "hello", 5); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := rl.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if got != "hello" {
		t.Fatalf("Recv() = %q, want %q", got, "hello")
	}
}

func TestRateLimitedChannelRejectsOversizedBurst(t *testing.T) {
	ch := NewChannel[string]("rl", 1<<20)
	rl := NewRateLimitedChannel(ch, 100, 100)
	defer rl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rl.Send(ctx, "too big", 1000); err == nil {
		t.Fatal("Send: want error for a message exceeding the burst size")
	}
}

func TestRateLimitedChannelThrottlesThroughput(t *testing.T) {
	ch := NewChannel[int]("rl", 1<<20)
	rl := NewRateLimitedChannel(ch, 10, 10) // 10 bytes/sec, burst 10
	defer rl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	start := time.Now()
	if err := rl.Send(ctx, 1, 10); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := rl.Send(ctx, 2, 10); err != nil {
		t.Fatalf("second send: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Fatalf("second send returned after %v, want throttling to delay it close to 1s", elapsed)
	}
}
