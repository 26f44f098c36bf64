package cataloging

import (
	"context"
	"strings"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

func validateOrder(o *models.Purchase) error {
	if strings.TrimSpace(o.ID) == "" {
		return invalid("order id is required")
	}
	if o.UserID == "" {
		return invalid("order %q: user is required", o.ID)
	}
	if o.PackageID == "" && o.BundleID == "" {
		return invalid("order %q: a package or bundle is required", o.ID)
	}
	if o.Status != "" && !o.Status.Valid() {
		return invalid("order %q: unknown status %q", o.ID, o.Status)
	}
	if o.Amount < 0 {
		return invalid("order %q: negative amount", o.ID)
	}
	return nil
}

// AddOrder records a purchase; new orders default to pending
func (s *Service) AddOrder(ctx context.Context, o *models.Purchase) (Result, error) {
	if err := validateOrder(o); err != nil {
		return Result{}, err
	}
	return s.mutate(ctx, "add order", o.ID, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		order := *o
		if order.Status == "" {
			order.Status = models.OrderPending
		}
		now := s.now()
		if order.PurchasedAt.IsZero() {
			order.PurchasedAt = now
		}
		order.UpdatedAt = now
		return nil, 0, insert(doc.Purchases, "order", order.ID, &order)
	})
}

func (s *Service) UpdateOrder(ctx context.Context, o *models.Purchase) (Result, error) {
	if err := validateOrder(o); err != nil {
		return Result{}, err
	}
	return s.mutate(ctx, "update order", o.ID, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		order := *o
		old, err := replace(doc.Purchases, "order", order.ID, &order)
		if err != nil {
			return nil, 0, err
		}
		if order.Status == "" {
			order.Status = old.Status
		}
		order.PurchasedAt = old.PurchasedAt
		order.UpdatedAt = s.now()
		return nil, 0, nil
	})
}

func (s *Service) DeleteOrder(ctx context.Context, id string) (Result, error) {
	return s.mutate(ctx, "delete order", id, func(doc *models.CatalogDocument) (models.MediaCarrier, int, error) {
		_, err := remove(doc.Purchases, "order", id)
		return nil, 0, err
	})
}
