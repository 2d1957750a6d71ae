// Package artifact uploads finished harvest files to Google Cloud
// Storage.
package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	Prefix string
}

// Uploader copies local artifacts into a configured GCS bucket.
type Uploader struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewUploader creates a GCS-backed uploader.
func NewUploader(client *storage.Client, cfg Config) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "harvests"
	}
	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
	}, nil
}

// Upload streams the local file into the bucket and returns a gs:// URI.
func (u *Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	if strings.TrimSpace(localPath) == "" {
		return "", fmt.Errorf("local path is required")
	}
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	object := path.Join(u.prefix, filepath.Base(localPath))
	writer := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = "text/csv"
	if _, err := io.Copy(writer, file); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy artifact: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy artifact: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", u.bucket, object), nil
}
