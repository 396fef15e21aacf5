package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rerun-io/rerun-sub034/internal/archive"
)

// newArchiveBackend builds the cold-tier archive.Backend named by kind,
// reading its connection details from environment variables so the CLI
// surface stays to a single --archive-backend flag. kind "none" returns
// a nil Backend, meaning the archive tier is disabled.
func newArchiveBackend(ctx context.Context, kind string) (archive.Backend, error) {
	switch kind {
	case "", "none":
		return nil, nil
	case "s3":
		return archive.NewS3Backend(ctx, archive.S3Config{
			Bucket:          os.Getenv("CHUNKSTORE_S3_BUCKET"),
			Region:          os.Getenv("CHUNKSTORE_S3_REGION"),
			Endpoint:        os.Getenv("CHUNKSTORE_S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("CHUNKSTORE_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("CHUNKSTORE_S3_SECRET_ACCESS_KEY"),
		})
	case "azure":
		return archive.NewAzureBackend(
			os.Getenv("CHUNKSTORE_AZURE_CONNECTION_STRING"),
			os.Getenv("CHUNKSTORE_AZURE_CONTAINER"),
		)
	case "gcs":
		return archive.NewGCSBackend(ctx, os.Getenv("CHUNKSTORE_GCS_BUCKET"))
	default:
		return nil, fmt.Errorf("unknown archive backend %q (want none, s3, azure, gcs)", kind)
	}
}
