package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureBackend persists archive objects as blobs in an Azure Blob
// Storage container.
type AzureBackend struct {
	client    *azblob.Client
	container string
}

// NewAzureBackend builds a Backend from an Azure Storage connection
// string and container name.
func NewAzureBackend(connectionString, container string) (*AzureBackend, error) {
	if container == "" {
		return nil, errors.New("archive: azure container is required")
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: azure client: %w", err)
	}
	return &AzureBackend{client: client, container: container}, nil
}

func (b *AzureBackend) Put(ctx context.Context, key Key, data []byte) error {
	_, err := b.client.UploadBuffer(ctx, b.container, string(key), data, nil)
	if err != nil {
		return fmt.Errorf("archive: azure upload %s: %w", key, err)
	}
	return nil
}

func (b *AzureBackend) Get(ctx context.Context, key Key, offset, length int64) ([]byte, error) {
	opts := &azblob.DownloadStreamOptions{}
	if offset > 0 || length > 0 {
		opts.Range = azblob.HTTPRange{Offset: offset, Count: length}
	}

	resp, err := b.client.DownloadStream(ctx, b.container, string(key), opts)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("archive: azure download %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("archive: azure read body %s: %w", key, err)
	}
	return data, nil
}

func (b *AzureBackend) Size(ctx context.Context, key Key) (int64, error) {
	props, err := b.client.ServiceClient().NewContainerClient(b.container).NewBlobClient(string(key)).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("archive: azure properties %s: %w", key, err)
	}
	if props.ContentLength == nil {
		return 0, nil
	}
	return *props.ContentLength, nil
}

func (b *AzureBackend) Delete(ctx context.Context, key Key) error {
	_, err := b.client.DeleteBlob(ctx, b.container, string(key), nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("archive: azure delete %s: %w", key, err)
	}
	return nil
}
