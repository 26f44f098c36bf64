package cataloging

import (
	"context"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

func validateCategory(c *models.Category) error {
	if strings.TrimSpace(c.ID) == "" {
		return invalid("category id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return invalid("category %q: name is required", c.ID)
	}
	if c.Status != "" && !c.Status.Valid() {
		return invalid("category %q: unknown status %q", c.ID, c.Status)
	}
	return nil
}

func (s *Service) AddCategory(ctx context.Context, c *models.Category) (Result, error) {
	if err := validateCategory(c); err != nil {
		return Result{}, err
	}
	return s.mutate(ctx, "add category", c.ID, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		cat := *c
		now := s.now()
		if cat.CreatedAt.IsZero() {
			cat.CreatedAt = now
		}
		cat.UpdatedAt = now
		return nil, 0, insert(doc.Categories, "category", cat.ID, &cat)
	})
}

func (s *Service) UpdateCategory(ctx context.Context, c *models.Category) (Result, error) {
	if err := validateCategory(c); err != nil {
		return Result{}, err
	}
	return s.mutate(ctx, "update category", c.ID, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		cat := *c
		old, err := replace(doc.Categories, "category", cat.ID, &cat)
		if err != nil {
			return nil, 0, err
		}
		cat.CreatedAt = old.CreatedAt
		cat.UpdatedAt = s.now()
		return nil, 0, nil
	})
}

// DeleteCategory removes a category, moving its modules to fallback in the same write.
// fallback may be empty only when no module uses the category.
func (s *Service) DeleteCategory(ctx context.Context, id, fallback string) (Result, error) {
	if id == "" {
		return Result{}, invalid("category id is required")
	}
	if fallback == id {
		return Result{}, invalid("category %q cannot be its own fallback", id)
	}
	return s.mutate(ctx, "delete category", id, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		if _, err := remove(doc.Categories, "category", id); err != nil {
			return nil, 0, err
		}
		affected := doc.ModulesInCategory(id)
		if len(affected) == 0 {
			return nil, 0, nil
		}
		if fallback == "" {
			return nil, 0, invalid("category %q is used by %d modules; a fallback category is required", id, len(affected))
		}
		if _, ok := doc.Categories[fallback]; !ok {
			return nil, 0, invalid("fallback category %q does not exist", fallback)
		}
		return nil, reassign(doc, affected, fallback, s.now()), nil
	})
}

// ReassignCategory moves every module in category from to category to, in one document write.
// from does not need to exist, so modules left pointing at a removed category can be repaired.
func (s *Service) ReassignCategory(ctx context.Context, from, to string) (Result, error) {
	if from == "" || to == "" {
		return Result{}, invalid("source and target categories are required")
	}
	if from == to {
		return Result{}, invalid("source and target categories are the same")
	}
	return s.mutate(ctx, "reassign category", to, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		if _, ok := doc.Categories[to]; !ok {
			return nil, 0, invalid("target category %q does not exist", to)
		}
		affected := doc.ModulesInCategory(from)
		if len(affected) == 0 {
			return nil, 0, invalid("no modules in category %q", from)
		}
		return nil, reassign(doc, affected, to, s.now()), nil
	})
}

func reassign(doc *models.CatalogDocument, moduleIDs []string, category string, now time.Time) int {
	for _, id := range moduleIDs {
		m := doc.Modules[id]
		m.Category = category
		m.UpdatedAt = now
	}
	return len(moduleIDs)
}
