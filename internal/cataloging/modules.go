package cataloging

import (
	"context"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

func validateModule(m *models.Module) error {
	if strings.TrimSpace(m.ID) == "" {
		return invalid("module id is required")
	}
	if strings.TrimSpace(m.Title) == "" {
		return invalid("module %q: title is required", m.ID)
	}
	if m.ContentType != "" && !m.ContentType.Valid() {
		return invalid("module %q: unknown content type %q", m.ID, m.ContentType)
	}
	if m.Status != "" && !m.Status.Valid() {
		return invalid("module %q: unknown status %q", m.ID, m.Status)
	}
	if !m.MediaStatus.Valid() {
		return invalid("module %q: unknown media status %q", m.ID, m.MediaStatus)
	}
	if m.Price < 0 {
		return invalid("module %q: negative price", m.ID)
	}
	return nil
}

// AddModule inserts a new module, encoding any attached media first
func (s *Service) AddModule(ctx context.Context, m *models.Module) (Result, error) {
	if err := validateModule(m); err != nil {
		return Result{}, err
	}
	return s.mutate(ctx, "add module", m.ID, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		mod := *m
		now := s.now()
		if mod.CreatedAt.IsZero() {
			mod.CreatedAt = now
		}
		mod.UpdatedAt = now
		return &mod, 0, insert(doc.Modules, "module", mod.ID, &mod)
	})
}

// UpdateModule replaces an existing module; its creation time is kept
func (s *Service) UpdateModule(ctx context.Context, m *models.Module) (Result, error) {
	if err := validateModule(m); err != nil {
		return Result{}, err
	}
	return s.mutate(ctx, "update module", m.ID, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		mod := *m
		old, err := replace(doc.Modules, "module", mod.ID, &mod)
		if err != nil {
			return nil, 0, err
		}
		mod.CreatedAt = old.CreatedAt
		mod.UpdatedAt = s.now()
		return &mod, 0, nil
	})
}

// DeleteModule removes a module and drops it from every package and bundle
func (s *Service) DeleteModule(ctx context.Context, id string) (Result, error) {
	return s.BulkDeleteModules(ctx, []string{id})
}

// BulkDeleteModules removes several modules in a single document write.
// Nothing is deleted if any of the modules is missing.
func (s *Service) BulkDeleteModules(ctx context.Context, ids []string) (Result, error) {
	if len(ids) == 0 {
		return Result{}, invalid("no modules to delete")
	}
	op := "delete module"
	if len(ids) > 1 {
		op = "bulk delete modules"
	}
	return s.mutate(ctx, op, strings.Join(ids, ","), func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		drop := make(map[string]bool, len(ids))
		for _, id := range ids {
			if _, err := remove(doc.Modules, "module", id); err != nil {
				return nil, 0, err
			}
			drop[id] = true
		}
		return nil, detachModules(doc, drop, s.now()), nil
	})
}

// detachModules removes module references from packages and bundles and returns how many changed
func detachModules(doc *models.CatalogDocument, drop map[string]bool, now time.Time) int {
	changed := 0
	for _, p := range doc.Packages {
		if ids, ok := without(p.ModuleIDs, drop); ok {
			p.ModuleIDs = ids
			p.UpdatedAt = now
			changed++
		}
	}
	for _, b := range doc.ContentBundles {
		if ids, ok := without(b.ModuleIDs, drop); ok {
			b.ModuleIDs = ids
			b.UpdatedAt = now
			changed++
		}
	}
	return changed
}
