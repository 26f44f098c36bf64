package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

const mirrorFilename = "catalog.json"
const workInProgressSuffix = ".wip"

// FileMirror keeps the mirror as a JSON file inside a directory it owns
type FileMirror struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

// NewFileMirror creates a mirror under dir/catalogsync on fs
func NewFileMirror(fs afero.Fs, dir string) *FileMirror {
	return &FileMirror{
		fs:  fs,
		dir: filepath.Join(dir, Namespace),
	}
}

func (m *FileMirror) path() string {
	return filepath.Join(m.dir, mirrorFilename)
}

func (m *FileMirror) Load(ctx context.Context) (*models.CatalogDocument, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := afero.ReadFile(m.fs, m.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, time.Time{}, ErrNoMirror
		}
		return nil, time.Time{}, fmt.Errorf("failed to read mirror: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to decode mirror: %w", err)
	}
	if env.Version != mirrorVersion || env.Document == nil {
		slog.Warn("Ignoring mirror with unknown layout", "path", m.path(), "version", env.Version)
		return nil, time.Time{}, ErrNoMirror
	}

	return env.Document, env.SavedAt, nil
}

// Save writes to a temporary file first and renames it into place
func (m *FileMirror) Save(ctx context.Context, doc *models.CatalogDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fs.MkdirAll(m.dir, 0700); err != nil {
		return fmt.Errorf("failed to create mirror directory: %w", err)
	}

	data, err := json.Marshal(envelope{Version: mirrorVersion, SavedAt: time.Now().UTC(), Document: doc})
	if err != nil {
		return fmt.Errorf("failed to encode mirror: %w", err)
	}

	tempPath := m.path() + workInProgressSuffix
	if err := afero.WriteFile(m.fs, tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write mirror: %w", err)
	}
	if err := m.fs.Rename(tempPath, m.path()); err != nil {
		_ = m.fs.Remove(tempPath)
		return fmt.Errorf("replacing mirror file (%s) with working copy failed: %w", m.path(), err)
	}

	return nil
}

// Clear removes the whole mirror directory, including leftovers of older layouts
func (m *FileMirror) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fs.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to clear mirror: %w", err)
	}
	return nil
}
