package cataloging

import (
	"context"
	"strings"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

func validatePackage(doc *models.CatalogDocument, p *models.Package) error {
	return checkModuleRefs(doc, "package", p.ID, p.ModuleIDs)
}

func validatePackageFields(p *models.Package) error {
	if strings.TrimSpace(p.ID) == "" {
		return invalid("package id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return invalid("package %q: name is required", p.ID)
	}
	if p.Status != "" && !p.Status.Valid() {
		return invalid("package %q: unknown status %q", p.ID, p.Status)
	}
	if !p.MediaStatus.Valid() {
		return invalid("package %q: unknown media status %q", p.ID, p.MediaStatus)
	}
	if p.Price < 0 {
		return invalid("package %q: negative price", p.ID)
	}
	return nil
}

func checkModuleRefs(doc *models.CatalogDocument, kind, id string, moduleIDs []string) error {
	for _, m := range moduleIDs {
		if _, ok := doc.Modules[m]; !ok {
			return invalid("%s %q: unknown module %q", kind, id, m)
		}
	}
	return nil
}

// AddPackage inserts a new package; every referenced module must exist
func (s *Service) AddPackage(ctx context.Context, p *models.Package) (Result, error) {
	if err := validatePackageFields(p); err != nil {
		return Result{}, err
	}
	return s.mutate(ctx, "add package", p.ID, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		pkg := *p
		if err := validatePackage(doc, &pkg); err != nil {
			return nil, 0, err
		}
		now := s.now()
		if pkg.CreatedAt.IsZero() {
			pkg.CreatedAt = now
		}
		pkg.UpdatedAt = now
		return &pkg, 0, insert(doc.Packages, "package", pkg.ID, &pkg)
	})
}

func (s *Service) UpdatePackage(ctx context.Context, p *models.Package) (Result, error) {
	if err := validatePackageFields(p); err != nil {
		return Result{}, err
	}
	return s.mutate(ctx, "update package", p.ID, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		pkg := *p
		if err := validatePackage(doc, &pkg); err != nil {
			return nil, 0, err
		}
		old, err := replace(doc.Packages, "package", pkg.ID, &pkg)
		if err != nil {
			return nil, 0, err
		}
		pkg.CreatedAt = old.CreatedAt
		pkg.UpdatedAt = s.now()
		return &pkg, 0, nil
	})
}

// DeletePackage removes a package and drops it from every bundle
func (s *Service) DeletePackage(ctx context.Context, id string) (Result, error) {
	return s.mutate(ctx, "delete package", id, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		if _, err := remove(doc.Packages, "package", id); err != nil {
			return nil, 0, err
		}
		drop := map[string]bool{id: true}
		now := s.now()
		changed := 0
		for _, b := range doc.ContentBundles {
			if ids, ok := without(b.PackageIDs, drop); ok {
				b.PackageIDs = ids
				b.UpdatedAt = now
				changed++
			}
		}
		return nil, changed, nil
	})
}

func validateBundleFields(b *models.Bundle) error {
	if strings.TrimSpace(b.ID) == "" {
		return invalid("bundle id is required")
	}
	if strings.TrimSpace(b.Name) == "" {
		return invalid("bundle %q: name is required", b.ID)
	}
	if b.Status != "" && !b.Status.Valid() {
		return invalid("bundle %q: unknown status %q", b.ID, b.Status)
	}
	if !b.MediaStatus.Valid() {
		return invalid("bundle %q: unknown media status %q", b.ID, b.MediaStatus)
	}
	if b.Price < 0 {
		return invalid("bundle %q: negative price", b.ID)
	}
	if b.Discount < 0 || b.Discount > 100 {
		return invalid("bundle %q: discount must be between 0 and 100", b.ID)
	}
	return nil
}

func validateBundle(doc *models.CatalogDocument, b *models.Bundle) error {
	for _, p := range b.PackageIDs {
		if _, ok := doc.Packages[p]; !ok {
			return invalid("bundle %q: unknown package %q", b.ID, p)
		}
	}
	return checkModuleRefs(doc, "bundle", b.ID, b.ModuleIDs)
}

// AddBundle inserts a new content bundle
func (s *Service) AddBundle(ctx context.Context, b *models.Bundle) (Result, error) {
	if err := validateBundleFields(b); err != nil {
		return Result{}, err
	}
	return s.mutate(ctx, "add bundle", b.ID, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		bundle := *b
		if err := validateBundle(doc, &bundle); err != nil {
			return nil, 0, err
		}
		now := s.now()
		if bundle.CreatedAt.IsZero() {
			bundle.CreatedAt = now
		}
		bundle.UpdatedAt = now
		return &bundle, 0, insert(doc.ContentBundles, "bundle", bundle.ID, &bundle)
	})
}

func (s *Service) UpdateBundle(ctx context.Context, b *models.Bundle) (Result, error) {
	if err := validateBundleFields(b); err != nil {
		return Result{}, err
	}
	return s.mutate(ctx, "update bundle", b.ID, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		bundle := *b
		if err := validateBundle(doc, &bundle); err != nil {
			return nil, 0, err
		}
		old, err := replace(doc.ContentBundles, "bundle", bundle.ID, &bundle)
		if err != nil {
			return nil, 0, err
		}
		bundle.CreatedAt = old.CreatedAt
		bundle.UpdatedAt = s.now()
		return &bundle, 0, nil
	})
}

func (s *Service) DeleteBundle(ctx context.Context, id string) (Result, error) {
	return s.mutate(ctx, "delete bundle", id, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		_, err := remove(doc.ContentBundles, "bundle", id)
		return nil, 0, err
	})
}
