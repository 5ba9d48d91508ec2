// Package blobstore reads and writes statement documents in Google Cloud Storage.
package blobstore

import (
	"fmt"
	"mime"
	"path"
	"strings"
)

const scheme = "gs://"

// ParseURI splits "gs://bucket/path/to/file.pdf" into bucket and object path.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, scheme) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, scheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}

	return parts[0], parts[1], nil
}

// Resolve turns a blob id into a URI. Full gs:// URIs pass through; bare object
// names are placed in bucket.
func Resolve(blobID, bucket string) (string, error) {
	blobID = strings.TrimSpace(blobID)
	if blobID == "" {
		return "", fmt.Errorf("Resolve: blob id is required")
	}
	if strings.HasPrefix(blobID, scheme) {
		return blobID, nil
	}
	if bucket == "" {
		return "", fmt.Errorf("Resolve: blob %q is not a gs:// URI and no bucket is configured", blobID)
	}
	return scheme + bucket + "/" + strings.TrimLeft(blobID, "/"), nil
}

// FilenameFromURI returns the last path element of a URI,
// e.g. "gs://bucket/folder/file.pdf" -> "file.pdf".
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, scheme)

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}

	return path.Base(parts[1])
}

// ObjectName builds the object path an uploaded file is stored under.
func ObjectName(prefix, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if prefix == "" {
		return base
	}
	return strings.TrimRight(prefix, "/") + "/" + base
}

func contentType(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
