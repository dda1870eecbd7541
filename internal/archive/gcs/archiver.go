// Package gcs snapshots each run's fetched items to Google Cloud Storage as
// JSON Lines.
package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

// Config captures the bucket and object prefix.
type Config struct {
	Bucket string
	Prefix string
}

// Archiver implements trend.Archiver.
type Archiver struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed archiver.
func New(client *storage.Client, cfg Config) (*Archiver, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// ObjectName returns prefix/runID/platform.jsonl.
func (a *Archiver) ObjectName(runID, platform string) string {
	return path.Join(a.prefix, runID, platform+".jsonl")
}

// Archive uploads items one JSON object per line and returns a gs:// URI.
func (a *Archiver) Archive(ctx context.Context, runID, platform string, items []trend.Item) (string, error) {
	if strings.TrimSpace(runID) == "" || strings.TrimSpace(platform) == "" {
		return "", fmt.Errorf("run id and platform are required")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range items {
		if err := enc.Encode(items[i]); err != nil {
			return "", fmt.Errorf("encode item %d: %w", i, err)
		}
	}

	name := a.ObjectName(runID, platform)
	writer := a.client.Bucket(a.bucket).Object(name).NewWriter(ctx)
	writer.ContentType = "application/x-ndjson"
	if _, err := io.Copy(writer, &buf); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, name), nil
}
