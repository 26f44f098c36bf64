package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/catalogsync/internal/catalog"
	"github.com/lehigh-university-libraries/catalogsync/internal/catalog/catalogtest"
	"github.com/lehigh-university-libraries/catalogsync/internal/models"
	"github.com/lehigh-university-libraries/catalogsync/internal/storage"
)

func seedDocument() *models.CatalogDocument {
	doc := models.NewCatalogDocument()
	doc.Modules["v1"] = &models.Module{ID: "v1", Title: "Alphabet Song", Category: "songs"}
	doc.Categories["songs"] = &models.Category{ID: "songs", Name: "Songs"}
	return doc
}

func newTestCache(t *testing.T) (*Cache, *catalogtest.Server, storage.Mirror) {
	t.Helper()
	srv := catalogtest.NewServer(t, seedDocument())
	mirror := storage.NewMemoryMirror()
	c := New(catalog.NewClient(srv.URL, "", time.Second), mirror)
	return c, srv, mirror
}

func TestReadServesMemoryUntilInvalidated(t *testing.T) {
	c, srv, _ := newTestCache(t)
	ctx := context.Background()

	first, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if first.Source != SourceRemote {
		t.Errorf("Expected remote source, got %s", first.Source)
	}

	if _, err := c.Read(ctx); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if srv.Gets() != 1 {
		t.Errorf("Expected 1 remote fetch, got %d", srv.Gets())
	}

	c.Invalidate()
	if _, err := c.Read(ctx); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if srv.Gets() != 2 {
		t.Errorf("Expected 2 remote fetches after invalidate, got %d", srv.Gets())
	}
}

func TestReadReturnsIndependentCopies(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	a, _ := c.Read(ctx)
	a.Document.Modules["v1"].Title = "Scribbled"
	delete(a.Document.Categories, "songs")

	b, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if b.Document.Modules["v1"].Title != "Alphabet Song" || b.Document.Categories["songs"] == nil {
		t.Error("Expected cached document to be unaffected by caller edits")
	}
}

func TestReadFallsBackToMirror(t *testing.T) {
	c, srv, _ := newTestCache(t)
	ctx := context.Background()

	if _, err := c.Read(ctx); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	c.Invalidate()
	srv.SetDown(true)

	entry, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Expected mirror fallback, got %v", err)
	}
	if entry.Source != SourceMirror {
		t.Errorf("Expected mirror source, got %s", entry.Source)
	}
	if entry.Document.Modules["v1"] == nil {
		t.Error("Expected mirrored module v1")
	}
	if _, ok := c.Peek(); ok {
		t.Error("Expected memory entry to stay empty after mirror fallback")
	}

	srv.SetDown(false)
	entry, err = c.Read(ctx)
	if err != nil || entry.Source != SourceRemote {
		t.Errorf("Expected remote read after recovery, got %v %v", entry.Source, err)
	}
}

func TestReadWithoutMirrorFails(t *testing.T) {
	c, srv, _ := newTestCache(t)
	srv.SetDown(true)

	_, err := c.Read(context.Background())
	if !errors.Is(err, ErrNoDataAvailable) {
		t.Fatalf("Expected ErrNoDataAvailable, got %v", err)
	}
}

func TestClearMirror(t *testing.T) {
	c, srv, mirror := newTestCache(t)
	ctx := context.Background()

	if _, err := c.Read(ctx); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if _, _, err := mirror.Load(ctx); err != nil {
		t.Fatalf("Expected mirror to be populated, got %v", err)
	}

	if err := c.ClearMirror(ctx); err != nil {
		t.Fatalf("ClearMirror failed: %v", err)
	}
	if _, _, err := mirror.Load(ctx); !errors.Is(err, storage.ErrNoMirror) {
		t.Errorf("Expected mirror cleared, got %v", err)
	}

	srv.SetDown(true)
	if _, err := c.Read(ctx); !errors.Is(err, ErrNoDataAvailable) {
		t.Errorf("Expected ErrNoDataAvailable after clearing mirror, got %v", err)
	}
}

func TestMaxAge(t *testing.T) {
	srv := catalogtest.NewServer(t, seedDocument())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := New(catalog.NewClient(srv.URL, "", time.Second), storage.NewMemoryMirror(),
		WithMaxAge(time.Minute),
		WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	_, _ = c.Read(ctx)
	now = now.Add(30 * time.Second)
	_, _ = c.Read(ctx)
	if srv.Gets() != 1 {
		t.Errorf("Expected 1 fetch within max age, got %d", srv.Gets())
	}

	now = now.Add(time.Minute)
	_, _ = c.Read(ctx)
	if srv.Gets() != 2 {
		t.Errorf("Expected re-fetch after max age, got %d", srv.Gets())
	}
}

type slowFetcher struct {
	calls atomic.Int32
	gate  chan struct{}
}

func (s *slowFetcher) FetchDocument(ctx context.Context) (*models.CatalogDocument, error) {
	s.calls.Add(1)
	<-s.gate
	return seedDocument(), nil
}

func TestConcurrentReadsCoalesce(t *testing.T) {
	f := &slowFetcher{gate: make(chan struct{})}
	c := New(f, storage.NewMemoryMirror())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Read(context.Background()); err != nil {
				t.Errorf("Read failed: %v", err)
			}
		}()
	}

	// Give the readers time to pile up behind the first fetch
	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	if n := f.calls.Load(); n != 1 {
		t.Errorf("Expected a single coalesced fetch, got %d", n)
	}
}

// gatedFetcher snapshots the title on its first call and then blocks until gate is closed.
// Later calls return the current title immediately.
type gatedFetcher struct {
	mu    sync.Mutex
	title string
	calls int
	held  chan struct{}
	gate  chan struct{}
}

func newGatedFetcher(title string) *gatedFetcher {
	return &gatedFetcher{title: title, held: make(chan struct{}), gate: make(chan struct{})}
}

func (g *gatedFetcher) SetTitle(title string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.title = title
}

func (g *gatedFetcher) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *gatedFetcher) FetchDocument(ctx context.Context) (*models.CatalogDocument, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	doc := seedDocument()
	doc.Modules["v1"].Title = g.title
	g.mu.Unlock()

	if n == 1 {
		close(g.held)
		select {
		case <-g.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return doc, nil
}

type readResult struct {
	entry Entry
	err   error
}

func readAsync(ctx context.Context, c *Cache) <-chan readResult {
	out := make(chan readResult, 1)
	go func() {
		entry, err := c.Read(ctx)
		out <- readResult{entry: entry, err: err}
	}()
	return out
}

func TestInvalidateDuringFetch(t *testing.T) {
	f := newGatedFetcher("Old")
	mirror := storage.NewMemoryMirror()
	c := New(f, mirror)
	ctx := context.Background()

	stale := readAsync(ctx, c)
	<-f.held

	f.SetTitle("New")
	c.Invalidate()

	// Must not join the flight started before the invalidation
	fresh, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := fresh.Document.Modules["v1"].Title; got != "New" {
		t.Errorf("Expected title New after invalidate, got %s", got)
	}

	close(f.gate)
	if res := <-stale; res.err != nil {
		t.Fatalf("Stale read failed: %v", res.err)
	}

	after, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := after.Document.Modules["v1"].Title; got != "New" {
		t.Errorf("Expected memory entry to keep title New, got %s", got)
	}
	if n := f.Calls(); n != 2 {
		t.Errorf("Expected 2 fetches, got %d", n)
	}

	doc, _, err := mirror.Load(ctx)
	if err != nil {
		t.Fatalf("Mirror load failed: %v", err)
	}
	if got := doc.Modules["v1"].Title; got != "New" {
		t.Errorf("Expected mirror title New, got %s", got)
	}
}

func TestClearMirrorDuringFetch(t *testing.T) {
	f := newGatedFetcher("Old")
	mirror := storage.NewMemoryMirror()
	c := New(f, mirror)
	ctx := context.Background()

	pending := readAsync(ctx, c)
	<-f.held

	if err := c.ClearMirror(ctx); err != nil {
		t.Fatalf("ClearMirror failed: %v", err)
	}
	close(f.gate)
	if res := <-pending; res.err != nil {
		t.Fatalf("Read failed: %v", res.err)
	}

	if _, _, err := mirror.Load(ctx); !errors.Is(err, storage.ErrNoMirror) {
		t.Errorf("Expected mirror to stay cleared, got %v", err)
	}
	if _, ok := c.Peek(); ok {
		t.Error("Expected memory entry to stay empty")
	}
}

func TestCancelledReaderDoesNotCancelSharedFetch(t *testing.T) {
	f := newGatedFetcher("Alphabet Song")
	c := New(f, storage.NewMemoryMirror())

	ctx, cancel := context.WithCancel(context.Background())
	first := readAsync(ctx, c)
	<-f.held
	second := readAsync(context.Background(), c)

	// Let the second reader join the flight
	time.Sleep(50 * time.Millisecond)
	cancel()

	if res := <-first; !errors.Is(res.err, context.Canceled) {
		t.Errorf("Expected context.Canceled for the first reader, got %v", res.err)
	}

	close(f.gate)
	res := <-second
	if res.err != nil {
		t.Fatalf("Expected the shared fetch to complete, got %v", res.err)
	}
	if res.entry.Source != SourceRemote {
		t.Errorf("Expected remote source, got %s", res.entry.Source)
	}
	if n := f.Calls(); n != 1 {
		t.Errorf("Expected a single fetch, got %d", n)
	}
}

func TestFetchTimeout(t *testing.T) {
	f := newGatedFetcher("Alphabet Song")
	c := New(f, storage.NewMemoryMirror(), WithFetchTimeout(20*time.Millisecond))

	_, err := c.Read(context.Background())
	if !errors.Is(err, ErrNoDataAvailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected timed out fetch without mirror, got %v", err)
	}
}
