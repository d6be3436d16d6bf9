package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// uploadTimeout bounds a single upload.
const uploadTimeout = 2 * time.Minute

// UploadFile uploads a local file to a GCS bucket under the given object name.
// It assumes Application Default Credentials are configured (gcloud auth application-default login).
func UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	contentType := ""
	if mt, err := mimetype.DetectFile(filePath); err == nil {
		contentType = mt.String()
	}

	return UploadReader(ctx, bucketName, objectName, f, contentType)
}

// UploadReader uploads everything read from r.
func UploadReader(ctx context.Context, bucketName, objectName string, r io.Reader, contentType string) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("UploadReader: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	defer func() {
		_ = w.Close()
	}()

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("UploadReader: copy to GCS writer: %w", err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadReader: finalize upload: %w", err)
	}
	return nil
}

// ObjectNameFor returns a collision-free object name for an uploaded
// settlement file, grouped by upload month.
func ObjectNameFor(filename string, now time.Time) string {
	return fmt.Sprintf("settlements/%s/%s-%s", now.Format("2006-01"), uuid.NewString()[:8], filepath.Base(filename))
}
