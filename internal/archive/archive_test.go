package archive

import (
	"context"
	"sync"
)

// fakeBackend is an in-memory Backend used by tests that don't need a
// real cloud account.
type fakeBackend struct {
	mu      sync.Mutex
	objects map[Key][]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{objects: make(map[Key][]byte)}
}

func (b *fakeBackend) Put(_ context.Context, key Key, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	b.objects[key] = cp
	return nil
}

func (b *fakeBackend) Get(_ context.Context, key Key, offset, length int64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	if offset < 0 || offset > int64(len(data)) {
		return nil, nil
	}
	end := int64(len(data))
	if length > 0 && offset+length < end {
		end = offset + length
	}
	return data[offset:end], nil
}

func (b *fakeBackend) Size(_ context.Context, key Key) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return 0, ErrNotFound
	}
	return int64(len(data)), nil
}

func (b *fakeBackend) Delete(_ context.Context, key Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

var _ Backend = (*fakeBackend)(nil)
