package gcsuploader

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// FetchFromGCS downloads the object at gcsURI. When maxBytes is positive at
// most maxBytes+1 bytes are read, so callers can detect oversized objects
// without holding all of them in memory.
func FetchFromGCS(ctx context.Context, gcsURI string, maxBytes int64) ([]byte, error) {
	bucketName, objectPath, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: creating storage client: %w", err)
	}
	defer storageClient.Close()

	return FetchWithClient(ctx, storageClient, bucketName, objectPath, maxBytes)
}

// FetchWithClient is FetchFromGCS using the provided storage client.
func FetchWithClient(ctx context.Context, client *storage.Client, bucketName, objectPath string, maxBytes int64) ([]byte, error) {
	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if maxBytes > 0 {
		r = io.LimitReader(rc, maxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading bytes: %w", err)
	}
	return data, nil
}
