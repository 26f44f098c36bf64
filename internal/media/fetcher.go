package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// Fetcher downloads remote media into a BlobStore so it can be ingested like a local file
type Fetcher struct {
	HTTPClient *http.Client
	MaxSize    int64
}

// NewFetcher creates a new media fetcher
func NewFetcher(maxSize int64) *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		MaxSize: maxSize,
	}
}

// Fetch downloads rawURL into blobs and returns the new handle
func (f *Fetcher) Fetch(ctx context.Context, blobs *BlobStore, rawURL string) (Blob, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Blob{}, fmt.Errorf("unsupported media URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Blob{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return Blob{}, fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Blob{}, fmt.Errorf("failed to download media: HTTP %d", resp.StatusCode)
	}
	if f.MaxSize > 0 && resp.ContentLength > f.MaxSize {
		return Blob{}, fmt.Errorf("media too large: %s (max %s)", HumanSize(resp.ContentLength), HumanSize(f.MaxSize))
	}

	// Extract filename from URL
	filename := path.Base(u.Path)
	if filename == "" || filename == "/" || filename == "." {
		filename = "download"
	}

	body := io.Reader(resp.Body)
	if f.MaxSize > 0 {
		body = io.LimitReader(resp.Body, f.MaxSize+1)
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	blob, err := blobs.Put(filename, contentType, body)
	if err != nil {
		return Blob{}, err
	}
	if f.MaxSize > 0 && blob.Size > f.MaxSize {
		_ = blobs.Revoke(blob.Ref)
		return Blob{}, fmt.Errorf("media too large: more than %s", HumanSize(f.MaxSize))
	}

	slog.Info("Downloaded media", "url", rawURL, "ref", blob.Ref, "size", HumanSize(blob.Size))
	return blob, nil
}
