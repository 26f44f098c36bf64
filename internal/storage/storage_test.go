package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/spf13/afero"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

func TestMirrorBackends(t *testing.T) {
	backends := []struct {
		name   string
		mirror func(t *testing.T) Mirror
	}{
		{
			name:   "file on memory fs",
			mirror: func(t *testing.T) Mirror { return NewFileMirror(afero.NewMemMapFs(), "/state") },
		},
		{
			name:   "file on disk",
			mirror: func(t *testing.T) Mirror { return NewFileMirror(afero.NewOsFs(), t.TempDir()) },
		},
		{
			name:   "datastore",
			mirror: func(t *testing.T) Mirror { return NewMemoryMirror() },
		},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			m := b.mirror(t)

			if _, _, err := m.Load(ctx); !errors.Is(err, ErrNoMirror) {
				t.Fatalf("Expected ErrNoMirror on empty mirror, got %v", err)
			}

			doc := models.NewCatalogDocument()
			doc.Modules["v1"] = &models.Module{ID: "v1", Title: "Alphabet Song"}
			if err := m.Save(ctx, doc); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, savedAt, err := m.Load(ctx)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if savedAt.IsZero() {
				t.Error("Expected save timestamp")
			}
			if loaded.Modules["v1"] == nil || loaded.Modules["v1"].Title != "Alphabet Song" {
				t.Error("Expected mirrored module v1")
			}
			if loaded.Packages == nil {
				t.Error("Expected empty collections to be present")
			}

			if err := m.Clear(ctx); err != nil {
				t.Fatalf("Clear failed: %v", err)
			}
			if _, _, err := m.Load(ctx); !errors.Is(err, ErrNoMirror) {
				t.Errorf("Expected ErrNoMirror after clear, got %v", err)
			}
			if err := m.Clear(ctx); err != nil {
				t.Errorf("Clearing an empty mirror should succeed, got %v", err)
			}
		})
	}
}

func TestFileMirrorClearRemovesOrphans(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := NewFileMirror(fs, "/state")
	ctx := context.Background()

	if err := m.Save(ctx, models.NewCatalogDocument()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	orphan := filepath.Join("/state", Namespace, "modules.v0.json")
	if err := afero.WriteFile(fs, orphan, []byte("{}"), 0600); err != nil {
		t.Fatalf("Failed to write orphan: %v", err)
	}
	outside := "/state/other.json"
	if err := afero.WriteFile(fs, outside, []byte("{}"), 0600); err != nil {
		t.Fatalf("Failed to write unrelated file: %v", err)
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if exists, _ := afero.Exists(fs, orphan); exists {
		t.Error("Expected orphaned fragment to be removed")
	}
	if exists, _ := afero.Exists(fs, outside); !exists {
		t.Error("Expected file outside the namespace to survive")
	}
}

func TestFileMirrorIgnoresUnknownVersion(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := NewFileMirror(fs, "/state")
	path := filepath.Join("/state", Namespace, mirrorFilename)
	if err := afero.WriteFile(fs, path, []byte(`{"version":99,"document":{}}`), 0600); err != nil {
		t.Fatalf("Failed to write mirror: %v", err)
	}

	if _, _, err := m.Load(context.Background()); !errors.Is(err, ErrNoMirror) {
		t.Errorf("Expected ErrNoMirror for unknown version, got %v", err)
	}
}

func TestDatastoreMirrorClearIsNamespaced(t *testing.T) {
	ctx := context.Background()
	ds := dssync.MutexWrap(datastore.NewMapDatastore())
	m := NewDatastoreMirror(ds)

	if err := m.Save(ctx, models.NewCatalogDocument()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	orphan := datastore.KeyWithNamespaces([]string{Namespace, "legacy", "modules"})
	foreign := datastore.NewKey("/session/token")
	_ = ds.Put(ctx, orphan, []byte("x"))
	_ = ds.Put(ctx, foreign, []byte("y"))

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if has, _ := ds.Has(ctx, orphan); has {
		t.Error("Expected orphan key in namespace to be removed")
	}
	if has, _ := ds.Has(ctx, documentKey()); has {
		t.Error("Expected document key to be removed")
	}
	if has, _ := ds.Has(ctx, foreign); !has {
		t.Error("Expected key outside the namespace to survive")
	}
}
