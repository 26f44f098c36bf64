// Package cache holds the last-known-good catalog document in memory, backed by a local mirror.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
	"github.com/lehigh-university-libraries/catalogsync/internal/storage"
)

// ErrNoDataAvailable is returned when neither the remote store nor the mirror can provide a document
var ErrNoDataAvailable = errors.New("no catalog data available")

// Source says where a document came from
type Source string

const (
	SourceRemote Source = "remote"
	SourceMirror Source = "mirror"
)

// Fetcher retrieves the authoritative document
type Fetcher interface {
	FetchDocument(ctx context.Context) (*models.CatalogDocument, error)
}

// Entry is a snapshot of the cached state
type Entry struct {
	Document      *models.CatalogDocument
	LastFetchedAt time.Time
	Source        Source
}

// DefaultFetchTimeout bounds a shared remote fetch, independent of the callers waiting on it
const DefaultFetchTimeout = time.Minute

// Cache is the single owner of the in-memory catalog entry.
// Documents handed out are clones; callers may modify them freely.
//
// Every Invalidate and ClearMirror starts a new generation. A fetch only commits its result to
// memory and to the mirror if no invalidation happened since it started, and reads never join a
// fetch from an earlier generation.
type Cache struct {
	remote       Fetcher
	mirror       storage.Mirror
	maxAge       time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	mu    sync.Mutex
	entry *Entry
	gen   uint64
	group singleflight.Group

	// commitMu orders mirror saves against ClearMirror
	commitMu sync.Mutex
}

// Option configures a Cache
type Option func(*Cache)

// WithMaxAge forces a re-fetch once the memory entry is older than d (0 means never)
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) { c.maxAge = d }
}

// WithFetchTimeout bounds a single remote fetch
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache
func New(remote Fetcher, mirror storage.Mirror, opts ...Option) *Cache {
	c := &Cache{
		remote:       remote,
		mirror:       mirror,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read returns the current catalog document.
// A fresh memory entry is served without a network round trip; otherwise the remote store is
// fetched and mirrored. If the fetch fails the mirror is served instead.
// Cancelling ctx abandons the wait but not a fetch other readers share.
func (c *Cache) Read(ctx context.Context) (Entry, error) {
	entry, gen, ok := c.fresh()
	if ok {
		return clone(entry)
	}

	key := "document#" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.fetch(fetchCtx, gen)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	case res = <-ch:
	}
	if res.Shared {
		slog.Debug("Coalesced catalog fetch", "generation", gen)
	}
	if res.Err == nil {
		return clone(res.Val.(Entry))
	}

	fetchErr := res.Err
	doc, savedAt, err := c.mirror.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoMirror) {
			return Entry{}, fmt.Errorf("%w: %w", ErrNoDataAvailable, fetchErr)
		}
		return Entry{}, fmt.Errorf("%w: %w (mirror: %w)", ErrNoDataAvailable, fetchErr, err)
	}

	slog.Warn("Remote catalog unavailable, serving mirror", "err", fetchErr, "saved_at", savedAt)
	// The memory entry stays empty so the next read tries the remote store again
	return Entry{Document: doc, LastFetchedAt: savedAt, Source: SourceMirror}, nil
}

// Invalidate drops the memory entry; the mirror is kept.
// Fetches already in flight can no longer populate the entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
	c.gen++
}

// ClearMirror erases the persisted mirror and drops the memory entry
func (c *Cache) ClearMirror(ctx context.Context) error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	c.Invalidate()
	if err := c.mirror.Clear(ctx); err != nil {
		return err
	}
	slog.Info("Cleared catalog mirror")
	return nil
}

// Peek reports the memory entry metadata without fetching. Document is always nil.
func (c *Cache) Peek() (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return Entry{}, false
	}
	return Entry{LastFetchedAt: c.entry.LastFetchedAt, Source: c.entry.Source}, true
}

// fresh returns the memory entry if it can be served, and the current generation
func (c *Cache) fresh() (Entry, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return Entry{}, c.gen, false
	}
	if c.maxAge > 0 && c.now().Sub(c.entry.LastFetchedAt) >= c.maxAge {
		return Entry{}, c.gen, false
	}
	return *c.entry, c.gen, true
}

// fetch loads the remote document for generation gen. The result is returned to the readers of
// that generation either way, but only committed while gen is still current.
func (c *Cache) fetch(ctx context.Context, gen uint64) (Entry, error) {
	doc, err := c.remote.FetchDocument(ctx)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{Document: doc, LastFetchedAt: c.now(), Source: SourceRemote}

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	c.mu.Lock()
	current := c.gen == gen
	if current {
		c.entry = &entry
	}
	c.mu.Unlock()

	if !current {
		slog.Debug("Discarding catalog fetched before invalidation", "generation", gen)
		return entry, nil
	}

	if err := c.mirror.Save(ctx, doc); err != nil {
		slog.Warn("Failed to update catalog mirror", "err", err)
	}

	slog.Debug("Fetched catalog", "modules", len(doc.Modules), "packages", len(doc.Packages), "categories", len(doc.Categories))
	return entry, nil
}

func clone(e Entry) (Entry, error) {
	doc, err := e.Document.Clone()
	if err != nil {
		return Entry{}, err
	}
	e.Document = doc
	return e, nil
}
