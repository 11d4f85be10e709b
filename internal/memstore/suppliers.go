package memstore

import (
	"context"
	"sort"

	"materials_market/internal/errs"
	"materials_market/internal/models"

	"github.com/shopspring/decimal"
)

type supplierStore struct {
	s *Store
}

func (r supplierStore) Create(ctx context.Context, supplier *models.Supplier) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	supplier.ID = s.id("suppliers")
	supplier.CreatedAt, supplier.UpdatedAt = now, now
	for i := range supplier.Zones {
		supplier.Zones[i].ID = s.id("delivery_zones")
		supplier.Zones[i].SupplierID = supplier.ID
	}
	for i := range supplier.Offers {
		supplier.Offers[i].ID = s.id("supplier_offers")
		supplier.Offers[i].SupplierID = supplier.ID
	}
	s.suppliers[supplier.ID] = copySupplier(supplier)
	return nil
}

func (r supplierStore) GetByID(ctx context.Context, id uint) (*models.Supplier, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	sup, ok := s.suppliers[id]
	if !ok {
		return nil, errs.NotFound("supplier.get", "supplier %d not found", id)
	}
	return copySupplier(sup), nil
}

func (r supplierStore) ListForProduct(ctx context.Context, productID uint) ([]models.Supplier, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Supplier, 0)
	for _, sup := range s.suppliers {
		if !sup.IsActive {
			continue
		}
		c := copySupplier(sup)
		c.Offers = c.Offers[:0]
		for _, o := range sup.Offers {
			if o.ProductID == productID && o.IsActive {
				c.Offers = append(c.Offers, o)
			}
		}
		if len(c.Offers) > 0 {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type settingsStore struct {
	s *Store
}

func (r settingsStore) Upsert(ctx context.Context, name string, rate decimal.Decimal, createdBy uint) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.settings[name]; ok {
		existing.Rate = rate
		existing.IsActive = true
		existing.UpdatedAt = now
		return nil
	}
	s.settings[name] = &models.PricingSetting{
		ID:          s.id("pricing_settings"),
		SettingName: name,
		Rate:        rate,
		IsActive:    true,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

func (r settingsStore) GetActive(ctx context.Context) ([]models.PricingSetting, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.PricingSetting, 0, len(s.settings))
	for _, setting := range s.settings {
		if setting.IsActive {
			out = append(out, *setting)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SettingName < out[j].SettingName })
	return out, nil
}
