package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

// ErrBlobNotFound is returned for unknown or revoked blob handles
var ErrBlobNotFound = errors.New("blob handle not found")

// Blob describes a transient local media handle
type Blob struct {
	Ref         string    `json:"ref"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BlobStore holds bytes behind process-local blob handles until they are revoked.
// Handles are never valid outside the process that created them.
type BlobStore struct {
	fs  afero.Fs
	dir string

	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewBlobStore creates a blob store rooted at dir on fs
func NewBlobStore(fs afero.Fs, dir string) (*BlobStore, error) {
	if err := fs.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &BlobStore{
		fs:    fs,
		dir:   dir,
		blobs: make(map[string]Blob),
	}, nil
}

// NewMemBlobStore creates a blob store that never touches disk
func NewMemBlobStore() *BlobStore {
	bs, _ := NewBlobStore(afero.NewMemMapFs(), "/blobs")
	return bs
}

// Put copies r into the store and returns a new handle for it
func (b *BlobStore) Put(filename, contentType string, r io.Reader) (Blob, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Blob{}, fmt.Errorf("failed to generate blob id: %w", err)
	}

	f, err := b.fs.OpenFile(b.path(id.String()), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return Blob{}, fmt.Errorf("failed to create blob: %w", err)
	}

	// Sniff the first bytes when the caller gave no usable type
	var head [512]byte
	n, readErr := io.ReadFull(r, head[:])
	if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
		f.Close()
		_ = b.fs.Remove(b.path(id.String()))
		return Blob{}, fmt.Errorf("failed to read blob: %w", readErr)
	}

	written, err := io.Copy(f, io.MultiReader(bytes.NewReader(head[:n]), r))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = b.fs.Remove(b.path(id.String()))
		return Blob{}, fmt.Errorf("failed to write blob: %w", err)
	}

	blob := Blob{
		Ref:         models.BlobScheme + id.String(),
		Filename:    filepath.Base(filename),
		ContentType: detectContentType(filename, contentType, head[:n]),
		Size:        written,
		CreatedAt:   time.Now(),
	}

	b.mu.Lock()
	b.blobs[blob.Ref] = blob
	b.mu.Unlock()

	return blob, nil
}

// Stat returns the metadata of a live handle
func (b *BlobStore) Stat(ref string) (Blob, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	blob, ok := b.blobs[ref]
	if !ok {
		return Blob{}, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}
	return blob, nil
}

// Open returns a reader over the handle's bytes
func (b *BlobStore) Open(ref string) (io.ReadCloser, Blob, error) {
	blob, err := b.Stat(ref)
	if err != nil {
		return nil, Blob{}, err
	}
	f, err := b.fs.Open(b.path(idFromRef(ref)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Blob{}, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
		}
		return nil, Blob{}, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, blob, nil
}

// Revoke releases the handle and its backing bytes. Revoking twice is not an error.
func (b *BlobStore) Revoke(ref string) error {
	b.mu.Lock()
	_, ok := b.blobs[ref]
	delete(b.blobs, ref)
	b.mu.Unlock()

	if !ok {
		return nil
	}
	if err := b.fs.Remove(b.path(idFromRef(ref))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}

// Len returns the number of live handles
func (b *BlobStore) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blobs)
}

// Close revokes every live handle
func (b *BlobStore) Close() error {
	b.mu.RLock()
	refs := make([]string, 0, len(b.blobs))
	for ref := range b.blobs {
		refs = append(refs, ref)
	}
	b.mu.RUnlock()

	var errs []error
	for _, ref := range refs {
		if err := b.Revoke(ref); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *BlobStore) path(id string) string {
	return filepath.Join(b.dir, id)
}

func idFromRef(ref string) string {
	// Refs are generated by Put, so the id never contains path separators
	return filepath.Base(strings.TrimPrefix(ref, models.BlobScheme))
}

func detectContentType(filename, declared string, head []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(head)
}
