package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	dssync "github.com/ipfs/go-datastore/sync"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

// DatastoreMirror keeps the mirror under a single namespaced key of a go-datastore
type DatastoreMirror struct {
	ds datastore.Datastore
}

// NewDatastoreMirror wraps ds; the mirror owns every key below /catalogsync
func NewDatastoreMirror(ds datastore.Datastore) *DatastoreMirror {
	return &DatastoreMirror{ds: ds}
}

// NewMemoryMirror creates a mirror that lives for the duration of the process
func NewMemoryMirror() *DatastoreMirror {
	return NewDatastoreMirror(dssync.MutexWrap(datastore.NewMapDatastore()))
}

func documentKey() datastore.Key {
	return datastore.KeyWithNamespaces([]string{Namespace, "mirror", "document"})
}

func (m *DatastoreMirror) Load(ctx context.Context) (*models.CatalogDocument, time.Time, error) {
	data, err := m.ds.Get(ctx, documentKey())
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, time.Time{}, ErrNoMirror
		}
		return nil, time.Time{}, fmt.Errorf("failed to read mirror: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to decode mirror: %w", err)
	}
	if env.Version != mirrorVersion || env.Document == nil {
		return nil, time.Time{}, ErrNoMirror
	}

	return env.Document, env.SavedAt, nil
}

func (m *DatastoreMirror) Save(ctx context.Context, doc *models.CatalogDocument) error {
	data, err := json.Marshal(envelope{Version: mirrorVersion, SavedAt: time.Now().UTC(), Document: doc})
	if err != nil {
		return fmt.Errorf("failed to encode mirror: %w", err)
	}
	if err := m.ds.Put(ctx, documentKey(), data); err != nil {
		return fmt.Errorf("failed to write mirror: %w", err)
	}
	return nil
}

// Clear deletes every key in the namespace rather than just the document key
func (m *DatastoreMirror) Clear(ctx context.Context) error {
	results, err := m.ds.Query(ctx, query.Query{
		Prefix:   datastore.NewKey(Namespace).String(),
		KeysOnly: true,
	})
	if err != nil {
		return fmt.Errorf("failed to list mirror keys: %w", err)
	}
	entries, err := results.Rest()
	if err != nil {
		return fmt.Errorf("failed to list mirror keys: %w", err)
	}

	for _, e := range entries {
		if err := m.ds.Delete(ctx, datastore.NewKey(e.Key)); err != nil {
			return fmt.Errorf("failed to clear mirror key %s: %w", e.Key, err)
		}
	}
	return nil
}
