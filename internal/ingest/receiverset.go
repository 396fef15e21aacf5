package ingest

import (
	"context"
	"sync"
)

// Source is a named producer of T values fed into a ReceiverSet. Run
// blocks, sending values into out, until ctx is cancelled or the source
// is exhausted, then returns — mirroring the receiver Run(ctx, out)
// contract every concrete ingestion transport implements.
type Source[T any] interface {
	Name() string
	Run(ctx context.Context, out *Channel[T]) error
}

// ReceiverSet multiplexes a dynamically changing number of sources into
// a single Recv call. Each added source runs in its own goroutine,
// feeding the set's shared output channel; a source is auto-pruned the
// moment its Run call returns, whether from ctx cancellation or its own
// error.
type ReceiverSet[T any] struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	errs    map[string]error
	out     *Channel[T]
	wg      sync.WaitGroup
}

// NewReceiverSet creates an empty set backed by a shared byte-quota
// channel of the given capacity.
func NewReceiverSet[T any](capacityBytes int64) *ReceiverSet[T] {
	return &ReceiverSet[T]{
		cancels: make(map[string]context.CancelFunc),
		errs:    make(map[string]error),
		out:     NewChannel[T]("receiver-set", capacityBytes),
	}
}

// Add starts src running in the background under a child of ctx. Add is
// a no-op if a source with the same name is already running.
func (s *ReceiverSet[T]) Add(ctx context.Context, src Source[T]) {
	s.mu.Lock()
	if _, exists := s.cancels[src.Name()]; exists {
		s.mu.Unlock()
		return
	}
	srcCtx, cancel := context.WithCancel(ctx)
	s.cancels[src.Name()] = cancel
	delete(s.errs, src.Name())
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := src.Run(srcCtx, s.out)
		s.mu.Lock()
		delete(s.cancels, src.Name())
		if err != nil {
			s.errs[src.Name()] = err
		}
		s.mu.Unlock()
	}()
}

// Remove stops the named source, if running. It does not wait for the
// source to exit; call Active or Err to observe that it has.
func (s *ReceiverSet[T]) Remove(name string) {
	s.mu.Lock()
	cancel, ok := s.cancels[name]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// Active returns the names of currently running sources.
func (s *ReceiverSet[T]) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.cancels))
	for name := range s.cancels {
		names = append(names, name)
	}
	return names
}

// Err returns the error the named source's Run call returned, if it has
// exited and reported one, and whether an entry was found at all.
func (s *ReceiverSet[T]) Err(name string) (error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err, ok := s.errs[name]
	return err, ok
}

// IsEmpty reports whether the set currently has no active sources.
func (s *ReceiverSet[T]) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels) == 0
}

// IsConnected reports whether a source with the given name is currently
// running.
func (s *ReceiverSet[T]) IsConnected(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cancels[name]
	return ok
}

// QueueLen returns the number of values currently buffered in the
// shared output channel, waiting to be received.
func (s *ReceiverSet[T]) QueueLen() int {
	return s.out.Len()
}

// CurrentBytes returns the total bytes currently in flight across every
// source feeding this set: every Add'ed source shares the same output
// channel, so this is just that channel's own in-flight byte count.
func (s *ReceiverSet[T]) CurrentBytes() int64 {
	return s.out.CurrentBytes()
}

// Recv blocks for the next value from any active source.
func (s *ReceiverSet[T]) Recv(ctx context.Context) (T, error) {
	return s.out.Recv(ctx)
}

// TryRecv returns the next value without blocking, if one is ready.
func (s *ReceiverSet[T]) TryRecv() (T, bool) {
	return s.out.TryRecv()
}

// Close stops every running source, waits for them to exit, then closes
// the shared output channel.
func (s *ReceiverSet[T]) Close() {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.out.Close()
}
