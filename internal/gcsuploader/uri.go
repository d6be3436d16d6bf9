package gcsuploader

import (
	"fmt"
	"path"
	"strings"
)

const uriScheme = "gs://"

// ParseGCSURI splits "gs://bucket/path/to/object" into bucket and object.
func ParseGCSURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, uriScheme) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	parts := strings.SplitN(strings.TrimPrefix(gcsURI, uriScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// BuildGCSURI is the inverse of ParseGCSURI.
func BuildGCSURI(bucket, object string) string {
	return uriScheme + bucket + "/" + strings.TrimPrefix(object, "/")
}

// IsGCSURI reports whether s uses the gs:// scheme.
func IsGCSURI(s string) bool {
	return strings.HasPrefix(s, uriScheme)
}

// ExtractFilenameFromGCSURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/ventas.xlsx" → "ventas.xlsx"
func ExtractFilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, uriScheme)

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
