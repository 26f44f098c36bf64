package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/catalogsync/internal/cache"
	"github.com/lehigh-university-libraries/catalogsync/internal/catalog"
	"github.com/lehigh-university-libraries/catalogsync/internal/cataloging"
	"github.com/lehigh-university-libraries/catalogsync/internal/config"
	"github.com/lehigh-university-libraries/catalogsync/internal/media"
	"github.com/lehigh-university-libraries/catalogsync/internal/persist"
	"github.com/lehigh-university-libraries/catalogsync/internal/storage"
	"github.com/lehigh-university-libraries/catalogsync/internal/upload"
	"github.com/spf13/afero"
)

// app is the wired component graph shared by every command
type app struct {
	cfg     *config.Config
	client  *catalog.Client
	mirror  storage.Mirror
	cache   *cache.Cache
	blobs   *media.BlobStore
	encoder *media.Encoder
	service *cataloging.Service
	uploads *upload.Queue
}

func newApp(cfg *config.Config) (*app, error) {
	client := catalog.NewClient(cfg.APIURL, cfg.APIKey, cfg.RequestTimeout)

	var mirror storage.Mirror
	switch cfg.MirrorBackend {
	case config.MirrorMemory:
		mirror = storage.NewMemoryMirror()
	default:
		mirror = storage.NewFileMirror(afero.NewOsFs(), cfg.MirrorDir)
	}

	blobs := media.NewMemBlobStore()
	if cfg.BlobDir != "" {
		var err error
		blobs, err = media.NewBlobStore(afero.NewOsFs(), cfg.BlobDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open blob store: %w", err)
		}
	}

	c := cache.New(client, mirror,
		cache.WithMaxAge(cfg.CacheMaxAge),
		cache.WithFetchTimeout(cfg.RequestTimeout),
	)
	encoder := media.NewEncoder(blobs)
	policy := persist.NewPolicy(client)
	policy.Threshold = cfg.StripThreshold
	service := cataloging.NewService(c, policy, encoder, client)

	uploads := upload.NewQueue(blobs, encoder, service, c)
	uploads.MaxUploadSize = cfg.MaxUploadSize
	uploads.Fetcher = media.NewFetcher(cfg.MaxUploadSize)

	slog.Debug("Catalog components ready",
		"api_url", cfg.APIURL,
		"mirror", cfg.MirrorBackend,
		"strip_threshold", cfg.StripThreshold,
		"max_upload_size", media.HumanSize(cfg.MaxUploadSize))

	return &app{
		cfg:     cfg,
		client:  client,
		mirror:  mirror,
		cache:   c,
		blobs:   blobs,
		encoder: encoder,
		service: service,
		uploads: uploads,
	}, nil
}

// Close stops in-flight uploads and releases every blob handle
func (a *app) Close() {
	a.uploads.Close()
	if err := a.blobs.Close(); err != nil {
		slog.Warn("Failed to release blob handles", "err", err)
	}
}
