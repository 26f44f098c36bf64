package cataloging

import (
	"context"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

func validateUploadEntry(u *models.UploadQueueEntry) error {
	if strings.TrimSpace(u.ID) == "" {
		return invalid("upload id is required")
	}
	if !u.Status.Valid() {
		return invalid("upload %q: unknown status %q", u.ID, u.Status)
	}
	if u.Progress < 0 || u.Progress > 100 {
		return invalid("upload %q: progress must be between 0 and 100", u.ID)
	}
	return nil
}

// PutUploadEntry inserts or replaces an upload queue entry
func (s *Service) PutUploadEntry(ctx context.Context, u *models.UploadQueueEntry) (Result, error) {
	if err := validateUploadEntry(u); err != nil {
		return Result{}, err
	}
	return s.mutate(ctx, "put upload", u.ID, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		entry := *u
		if old, ok := doc.UploadQueue[entry.ID]; ok {
			entry.CreatedAt = old.CreatedAt
		}
		now := s.now()
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.UpdatedAt = now
		doc.UploadQueue[entry.ID] = &entry
		return &entry, 0, nil
	})
}

func (s *Service) DeleteUploadEntry(ctx context.Context, id string) (Result, error) {
	return s.mutate(ctx, "delete upload", id, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		_, err := remove(doc.UploadQueue, "upload", id)
		return nil, 0, err
	})
}

// claimUploads swaps upload:<id> references in entity for the finished upload's asset and removes
// the claimed entries from the queue. It returns how many entries were removed.
func claimUploads(doc *models.CatalogDocument, entity models.MediaCarrier) (int, error) {
	if _, ok := entity.(*models.UploadQueueEntry); ok {
		return 0, nil
	}

	claimed := map[string]string{}
	for _, f := range entity.MediaFields() {
		asset := models.ParseMediaAsset(*f.Value)
		if asset.Kind != models.MediaUploadRef {
			continue
		}
		id := asset.UploadID()
		if ref, ok := claimed[id]; ok {
			*f.Value = ref
			continue
		}

		u, ok := doc.UploadQueue[id]
		if !ok {
			return 0, fmt.Errorf("%w: upload %q", ErrNotFound, id)
		}
		if u.Status != models.UploadCompleted || u.AssetRef == "" {
			return 0, invalid("%s: upload %q has no finished asset (status %s)", f.Name, id, u.Status)
		}
		*f.Value = u.AssetRef
		claimed[id] = u.AssetRef
		delete(doc.UploadQueue, id)
	}
	return len(claimed), nil
}
