// Package archive keeps an immutable copy of scanned receipt images in a
// GCS bucket. Archival is optional; the pipeline runs without it when no
// bucket is configured.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Uploader writes receipt images to a fixed bucket using Application
// Default Credentials.
type Uploader struct {
	bucket string
	log    zerolog.Logger
}

// New creates an uploader for the given bucket.
func New(bucket string, log zerolog.Logger) *Uploader {
	return &Uploader{bucket: bucket, log: log}
}

// Save stores the image under receipts/YYYY/MM/DD/<uuid> and returns the
// resulting gs:// URI.
func (u *Uploader) Save(ctx context.Context, data []byte, mimeType string) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("archive.Save: create storage client: %w", err)
	}
	defer client.Close()

	object := fmt.Sprintf("receipts/%s/%s%s",
		time.Now().Format("2006/01/02"), uuid.NewString(), extensionFor(mimeType))

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	w.ContentType = mimeType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("archive.Save: write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("archive.Save: finalize upload: %w", err)
	}

	uri := fmt.Sprintf("gs://%s/%s", u.bucket, object)
	u.log.Debug().Str("uri", uri).Int("bytes", len(data)).Msg("Receipt archived")
	return uri, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	default:
		return ""
	}
}
