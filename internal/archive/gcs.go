package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSBackend persists archive objects to a Google Cloud Storage bucket.
type GCSBackend struct {
	client *storage.Client
	bucket string
}

// NewGCSBackend builds a Backend using application-default credentials.
func NewGCSBackend(ctx context.Context, bucket string) (*GCSBackend, error) {
	if bucket == "" {
		return nil, errors.New("archive: gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: gcs client: %w", err)
	}
	return &GCSBackend{client: client, bucket: bucket}, nil
}

func (b *GCSBackend) object(key Key) *storage.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(string(key))
}

func (b *GCSBackend) Put(ctx context.Context, key Key, data []byte) error {
	w := b.object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("archive: gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("archive: gcs close %s: %w", key, err)
	}
	return nil
}

func (b *GCSBackend) Get(ctx context.Context, key Key, offset, length int64) ([]byte, error) {
	if length <= 0 {
		length = -1
	}
	r, err := b.object(key).NewRangeReader(ctx, offset, length)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("archive: gcs range reader %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("archive: gcs read %s: %w", key, err)
	}
	return data, nil
}

func (b *GCSBackend) Size(ctx context.Context, key Key) (int64, error) {
	attrs, err := b.object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("archive: gcs attrs %s: %w", key, err)
	}
	return attrs.Size, nil
}

func (b *GCSBackend) Delete(ctx context.Context, key Key) error {
	err := b.object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("archive: gcs delete %s: %w", key, err)
	}
	return nil
}
