package repository

import (
	"context"

	"materials_market/internal/errs"
	"materials_market/internal/models"

	"gorm.io/gorm"
)

// SupplierRepository is the supplier directory lookup.
type SupplierRepository interface {
	Create(ctx context.Context, supplier *models.Supplier) error
	GetByID(ctx context.Context, id uint) (*models.Supplier, error)
	// ListForProduct returns active suppliers with an active offer for productID.
	// Offers are narrowed to that product; every zone is loaded.
	ListForProduct(ctx context.Context, productID uint) ([]models.Supplier, error)
}

type supplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) SupplierRepository {
	return &supplierRepository{db: db}
}

func (r *supplierRepository) Create(ctx context.Context, supplier *models.Supplier) error {
	return translate("supplier.create", r.db.WithContext(ctx).Create(supplier).Error)
}

func (r *supplierRepository) GetByID(ctx context.Context, id uint) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.WithContext(ctx).Preload("Zones").Preload("Offers").First(&supplier, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("supplier.get", "supplier %d not found", id)
		}
		return nil, translate("supplier.get", err)
	}
	return &supplier, nil
}

func (r *supplierRepository) ListForProduct(ctx context.Context, productID uint) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	err := r.db.WithContext(ctx).
		Preload("Zones").
		Preload("Offers", "product_id = ? AND is_active = ?", productID, true).
		Where("is_active = ?", true).
		Where("EXISTS (SELECT 1 FROM supplier_offers o WHERE o.supplier_id = suppliers.id AND o.product_id = ? AND o.is_active = ?)", productID, true).
		Order("id").
		Find(&suppliers).Error
	return suppliers, translate("supplier.list", err)
}
