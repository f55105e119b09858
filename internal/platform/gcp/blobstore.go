// Package gcp holds the object-storage adapter. Raw page HTML lives in a
// GCS bucket keyed by `<job_sync_id>/<md5(url)>.html` so each sync job owns
// its own namespace and re-crawls overwrite in place.
package gcp

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

// ErrNotFound is returned by Get when the path has never been written.
var ErrNotFound = errors.New("blob not found")

type BlobStore interface {
	PutHTML(ctx context.Context, namespace, url string, html []byte) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	Update(ctx context.Context, path string, data []byte) error
}

type blobStore struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

func NewBlobStore(log *logger.Logger) (BlobStore, error) {
	bucket := strings.TrimSpace(os.Getenv("SCRAPED_HTML_GCS_BUCKET_NAME"))
	if bucket == "" {
		return nil, fmt.Errorf("missing env var SCRAPED_HTML_GCS_BUCKET_NAME")
	}

	ctx := context.Background()
	var opts []option.ClientOption
	if emulator := strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")); emulator != "" {
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog := log.With("service", "BlobStore")
	serviceLog.Info("Blob store initialized", "bucket", bucket)
	return &blobStore{log: serviceLog, client: client, bucket: bucket}, nil
}

// HTMLPath is the canonical blob path for a page: MD5 keeps the key short
// and filesystem-safe while staying stable per URL.
func HTMLPath(namespace, url string) string {
	sum := md5.Sum([]byte(url))
	return fmt.Sprintf("%s/%s.html", namespace, hex.EncodeToString(sum[:]))
}

// PutHTML upserts the rendered HTML of one page and returns its path.
// Writing the same (namespace, url) twice overwrites the payload at the
// same path, which is what makes crawl retries idempotent.
func (bs *blobStore) PutHTML(ctx context.Context, namespace, url string, html []byte) (string, error) {
	path := HTMLPath(namespace, url)
	if err := bs.write(ctx, path, html); err != nil {
		return "", err
	}
	return path, nil
}

func (bs *blobStore) Update(ctx context.Context, path string, data []byte) error {
	return bs.write(ctx, path, data)
}

func (bs *blobStore) write(ctx context.Context, path string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bs.client.Bucket(bs.bucket).Object(path).NewWriter(ctx)
	w.ContentType = "text/html"
	w.CacheControl = "public, max-age=3600"
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write blob %q: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close blob writer for %q: %w", path, err)
	}
	return nil
}

func (bs *blobStore) Get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	r, err := bs.client.Bucket(bs.bucket).Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open blob reader for %q: %w", path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %q: %w", path, err)
	}
	return data, nil
}
