package ingest

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSource struct {
	name   string
	values []int
	err    error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Run(ctx context.Context, out *Channel[int]) error {
	for _, v := range f.values {
		if err := out.Send(ctx, v, 8); err != nil {
			return err
		}
	}
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

func TestReceiverSetDeliversFromMultipleSources(t *testing.T) {
	set := NewReceiverSet[int](1024)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer set.Close()

	set.Add(ctx, &fakeSource{name: "a", values: []int{1, 2}})
	set.Add(ctx, &fakeSource{name: "b", values: []int{3}})

	seen := make(map[int]bool)
	for i := 0; i < 3; i++ {
		recvCtx, recvCancel := context.WithTimeout(context.Background(), time.Second)
		v, err := set.Recv(recvCtx)
		recvCancel()
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		seen[v] = true
	}
	for _, want := range []int{1, 2, 3} {
		if !seen[want] {
			t.Fatalf("expected to see value %d, got %v", want, seen)
		}
	}
}

func TestReceiverSetPrunesExitedSource(t *testing.T) {
	set := NewReceiverSet[int](1024)
	ctx := context.Background()
	defer set.Close()

	boom := errors.New("boom")
	set.Add(ctx, &fakeSource{name: "failing", values: nil, err: boom})

	deadline := time.After(time.Second)
	for {
		if len(set.Active()) == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expected the failing source to be pruned from Active")
		case <-time.After(time.Millisecond):
		}
	}

	err, ok := set.Err("failing")
	if !ok || !errors.Is(err, boom) {
		t.Fatalf("expected recorded error %v, got %v (ok=%v)", boom, err, ok)
	}
}

func TestReceiverSetAddIsNoOpForDuplicateName(t *testing.T) {
	set := NewReceiverSet[int](1024)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer set.Close()

	set.Add(ctx, &fakeSource{name: "a", values: []int{1}})
	set.Add(ctx, &fakeSource{name: "a", values: []int{2}})

	recvCtx, recvCancel := context.WithTimeout(context.Background(), time.Second)
	defer recvCancel()
	if _, err := set.Recv(recvCtx); err != nil {
		t.Fatalf("Recv: %v", err)
	}

	if len(set.Active()) != 1 {
		t.Fatalf("expected exactly 1 active source, got %v", set.Active())
	}
}

func TestReceiverSetIsEmptyAndIsConnected(t *testing.T) {
	set := NewReceiverSet[int](1024)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer set.Close()

	if !set.IsEmpty() {
		t.Fatal("expected a freshly created set to be empty")
	}
	if set.IsConnected("a") {
		t.Fatal("expected source 'a' to not be connected yet")
	}

	set.Add(ctx, &fakeSource{name: "a", values: nil})

	deadline := time.After(time.Second)
	for !set.IsConnected("a") {
		select {
		case <-deadline:
			t.Fatal("expected source 'a' to become connected")
		case <-time.After(time.Millisecond):
		}
	}
	if set.IsEmpty() {
		t.Fatal("expected set to not be empty once a source is connected")
	}

	set.Remove("a")
	deadline = time.After(time.Second)
	for !set.IsEmpty() {
		select {
		case <-deadline:
			t.Fatal("expected set to become empty after Remove")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestReceiverSetQueueLenAndCurrentBytesReflectSharedChannel(t *testing.T) {
	set := NewReceiverSet[int](1024)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer set.Close()

	if set.QueueLen() != 0 || set.CurrentBytes() != 0 {
		t.Fatalf("expected empty queue and zero bytes initially, got len=%d bytes=%d", set.QueueLen(), set.CurrentBytes())
	}

	set.Add(ctx, &fakeSource{name: "a", values: []int{1, 2}})

	deadline := time.After(time.Second)
	for set.QueueLen() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected queue length to reach 2, got %d", set.QueueLen())
		case <-time.After(time.Millisecond):
		}
	}
	if got := set.CurrentBytes(); got != 16 {
		t.Fatalf("expected 16 bytes in flight (2 messages of 8 bytes each), got %d", got)
	}
}
