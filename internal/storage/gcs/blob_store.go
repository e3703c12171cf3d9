// Package gcs archives scraped venue pages in Google Cloud Storage.
package gcs

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

// DefaultContentType is stored when the caller passes none; archived
// objects are scraped venue pages.
const DefaultContentType = "text/html; charset=utf-8"

// Config selects the bucket and how pages are stored.
type Config struct {
	Bucket string
	// Gzip stores pages gzip-encoded. GCS serves them decompressed to
	// clients that do not accept gzip.
	Gzip bool
}

// BlobStore writes archived venue pages to a bucket.
type BlobStore struct {
	client *storage.Client
	cfg    Config
}

// New creates a GCS-backed page archive.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{client: client, cfg: cfg}, nil
}

// PutObject uploads one page under key and returns its gs:// URI.
func (s *BlobStore) PutObject(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	name, err := objectName(key)
	if err != nil {
		return "", err
	}
	writer := s.client.Bucket(s.cfg.Bucket).Object(name).NewWriter(ctx)
	applyAttrs(&writer.ObjectAttrs, name, contentType, s.cfg.Gzip)

	if err := s.copy(writer, r); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("upload page %s: %w (close writer: %v)", name, err, closeErr)
		}
		return "", fmt.Errorf("upload page %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish page %s: %w", name, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.cfg.Bucket, name), nil
}

func (s *BlobStore) copy(w io.Writer, r io.Reader) error {
	if !s.cfg.Gzip {
		_, err := io.Copy(w, r)
		return err
	}
	zw := gzip.NewWriter(w)
	if _, err := io.Copy(zw, r); err != nil {
		return err
	}
	return zw.Close()
}

// objectName cleans key into a bucket-relative object name.
func objectName(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	name := strings.TrimPrefix(path.Clean("/"+key), "/")
	if name == "" {
		return "", fmt.Errorf("object key %q has no name", key)
	}
	return name, nil
}

func applyAttrs(attrs *storage.ObjectAttrs, name, contentType string, gzipped bool) {
	if contentType == "" {
		contentType = DefaultContentType
	}
	attrs.ContentType = contentType
	if gzipped {
		attrs.ContentEncoding = "gzip"
	}
	attrs.Metadata = map[string]string{
		"source":      "venue-scraper",
		"archive-key": path.Base(name),
	}
}
