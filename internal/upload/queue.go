// Package upload ingests media files in the background and records them in the catalog's upload queue.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/catalogsync/internal/cache"
	"github.com/lehigh-university-libraries/catalogsync/internal/cataloging"
	"github.com/lehigh-university-libraries/catalogsync/internal/media"
	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

// DefaultMaxUploadSize caps a single upload
const DefaultMaxUploadSize = 100 << 20

// ErrUploadTooLarge is returned when a file exceeds MaxUploadSize
var ErrUploadTooLarge = errors.New("upload too large")

// Store persists upload queue entries into the catalog document
type Store interface {
	PutUploadEntry(ctx context.Context, u *models.UploadQueueEntry) (cataloging.Result, error)
	DeleteUploadEntry(ctx context.Context, id string) (cataloging.Result, error)
}

// Catalog is the read side used to list persisted entries
type Catalog interface {
	Read(ctx context.Context) (cache.Entry, error)
}

type job struct {
	entry   models.UploadQueueEntry
	blobRef string
	cancel  context.CancelFunc
}

// Queue tracks uploads that are still being ingested, or failed, alongside the persisted ones
type Queue struct {
	blobs   *media.BlobStore
	encoder *media.Encoder
	store   Store
	catalog Catalog

	Fetcher       *media.Fetcher
	MaxUploadSize int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	jobs        map[string]*job
	subscribers map[int]func(models.UploadQueueEntry)
	nextSub     int
}

func NewQueue(blobs *media.BlobStore, encoder *media.Encoder, store Store, catalog Catalog) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		blobs:         blobs,
		encoder:       encoder,
		store:         store,
		catalog:       catalog,
		Fetcher:       media.NewFetcher(DefaultMaxUploadSize),
		MaxUploadSize: DefaultMaxUploadSize,
		ctx:           ctx,
		cancel:        cancel,
		jobs:          make(map[string]*job),
		subscribers:   make(map[int]func(models.UploadQueueEntry)),
	}
}

// Enqueue stores the file and starts ingesting it. The returned entry is in the processing state.
// Cancelling ctx aborts the copy; ingestion itself is bound to the queue, not to ctx.
func (q *Queue) Enqueue(ctx context.Context, filename, contentType string, r io.Reader) (models.UploadQueueEntry, error) {
	src := media.ContextReader(ctx, io.LimitReader(r, q.MaxUploadSize+1))
	blob, err := q.blobs.Put(filename, contentType, src)
	if err != nil {
		return models.UploadQueueEntry{}, err
	}
	if err := ctx.Err(); err != nil {
		_ = q.blobs.Revoke(blob.Ref)
		return models.UploadQueueEntry{}, err
	}
	if blob.Size > q.MaxUploadSize {
		_ = q.blobs.Revoke(blob.Ref)
		return models.UploadQueueEntry{}, fmt.Errorf("%w: %s exceeds %s", ErrUploadTooLarge, filename, media.HumanSize(q.MaxUploadSize))
	}
	return q.start(blob)
}

// EnqueueURL downloads a remote file and ingests it like a local upload
func (q *Queue) EnqueueURL(ctx context.Context, rawURL string) (models.UploadQueueEntry, error) {
	f := *q.Fetcher
	f.MaxSize = q.MaxUploadSize
	blob, err := f.Fetch(ctx, q.blobs, rawURL)
	if err != nil {
		return models.UploadQueueEntry{}, err
	}
	return q.start(blob)
}

func (q *Queue) start(blob media.Blob) (models.UploadQueueEntry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		_ = q.blobs.Revoke(blob.Ref)
		return models.UploadQueueEntry{}, fmt.Errorf("failed to generate upload id: %w", err)
	}

	now := time.Now().UTC()
	ctx, cancel := context.WithCancel(q.ctx)
	j := &job{
		entry: models.UploadQueueEntry{
			ID:          id.String(),
			Filename:    blob.Filename,
			ContentType: blob.ContentType,
			Size:        blob.Size,
			Status:      models.UploadProcessing,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		blobRef: blob.Ref,
		cancel:  cancel,
	}

	if w, h, err := q.blobs.ImageDimensions(blob.Ref); err != nil {
		slog.Warn("Failed to get image dimensions", "id", j.entry.ID, "err", err)
	} else {
		j.entry.Width, j.entry.Height = w, h
	}

	q.mu.Lock()
	q.jobs[j.entry.ID] = j
	q.mu.Unlock()

	slog.Info("Upload queued", "id", j.entry.ID, "filename", blob.Filename, "size", blob.Size)
	q.notify(j.entry)

	q.wg.Add(1)
	go q.ingest(ctx, j.entry.ID, blob.Ref)

	return j.entry, nil
}

func (q *Queue) ingest(ctx context.Context, id, ref string) {
	defer q.wg.Done()

	asset, err := q.encoder.EncodeWithProgress(ctx, models.MediaAsset{Kind: models.MediaBlobHandle, LocalRef: ref}, func(p int) {
		q.update(id, func(e *models.UploadQueueEntry) { e.Progress = p })
	})
	if err != nil {
		q.fail(id, err)
		return
	}

	entry, ok := q.update(id, func(e *models.UploadQueueEntry) {
		e.Status = models.UploadCompleted
		e.Progress = 100
		e.AssetRef = asset.Value()
	})
	if !ok {
		// dequeued while encoding
		return
	}

	res, err := q.store.PutUploadEntry(ctx, &entry)
	if err != nil {
		q.fail(id, err)
		return
	}

	q.mu.Lock()
	delete(q.jobs, id)
	q.mu.Unlock()

	if res.Outcome.Degraded {
		entry.AssetRef = ""
		entry.MediaStatus = models.MediaStatusMetadataOnly
		entry.OriginalFileSize = media.HumanSize(entry.Size)
	}
	slog.Info("Upload completed", "id", id, "degraded", res.Outcome.Degraded)
	q.notify(entry)
}

func (q *Queue) fail(id string, err error) {
	entry, ok := q.update(id, func(e *models.UploadQueueEntry) {
		e.Status = models.UploadFailed
		e.AssetRef = ""
		e.Error = err.Error()
	})
	if ok {
		slog.Warn("Upload failed", "id", id, "filename", entry.Filename, "err", err)
	}
}

// update applies fn to a local entry and notifies subscribers; ok is false if the entry is gone
func (q *Queue) update(id string, fn func(*models.UploadQueueEntry)) (models.UploadQueueEntry, bool) {
	q.mu.Lock()
	j, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return models.UploadQueueEntry{}, false
	}
	fn(&j.entry)
	j.entry.UpdatedAt = time.Now().UTC()
	entry := j.entry
	q.mu.Unlock()

	q.notify(entry)
	return entry, true
}

// Dequeue drops an entry, cancelling its ingestion if it is still running, and removes it from the
// catalog if it was persisted
func (q *Queue) Dequeue(ctx context.Context, id string) error {
	q.mu.Lock()
	j, local := q.jobs[id]
	delete(q.jobs, id)
	q.mu.Unlock()

	if local {
		j.cancel()
		_ = q.blobs.Revoke(j.blobRef)
		slog.Info("Upload dequeued", "id", id)
	}

	entry, err := q.catalog.Read(ctx)
	if err != nil {
		if local {
			return nil
		}
		return err
	}
	if _, persisted := entry.Document.UploadQueue[id]; !persisted {
		if local {
			return nil
		}
		return fmt.Errorf("%w: upload %q", cataloging.ErrNotFound, id)
	}

	_, err = q.store.DeleteUploadEntry(ctx, id)
	return err
}

// List returns persisted and local entries ordered by creation time. Local entries take precedence.
func (q *Queue) List(ctx context.Context) ([]models.UploadQueueEntry, error) {
	entry, err := q.catalog.Read(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.UploadQueueEntry, len(entry.Document.UploadQueue))
	for id, e := range entry.Document.UploadQueue {
		byID[id] = *e
	}

	q.mu.Lock()
	for id, j := range q.jobs {
		byID[id] = j.entry
	}
	q.mu.Unlock()

	out := make([]models.UploadQueueEntry, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Subscribe registers fn for every entry change and returns a function that removes it.
// fn runs on the ingesting goroutine and must not block.
func (q *Queue) Subscribe(fn func(models.UploadQueueEntry)) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextSub
	q.nextSub++
	q.subscribers[id] = fn
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.subscribers, id)
	}
}

func (q *Queue) notify(entry models.UploadQueueEntry) {
	q.mu.Lock()
	subs := make([]func(models.UploadQueueEntry), 0, len(q.subscribers))
	for _, fn := range q.subscribers {
		subs = append(subs, fn)
	}
	q.mu.Unlock()

	for _, fn := range subs {
		fn(entry)
	}
}

// Wait blocks until every running ingestion has finished
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Close cancels running ingestions and waits for them
func (q *Queue) Close() {
	q.cancel()
	q.wg.Wait()
}
