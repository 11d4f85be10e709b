package repository

import (
	"context"
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuildInvoiceFunc prices an invoice from the locked order snapshot. The
// repository assigns the number and claims the deliveries afterwards.
type BuildInvoiceFunc func(order *models.Order) (*models.Invoice, error)

// InvoiceStatusFunc edits the status of a locked invoice.
type InvoiceStatusFunc func(invoice *models.Invoice) error

type InvoiceRepository interface {
	// CreateForDeliveries persists a new invoice and claims deliveryIDs for it in
	// one transaction. A delivery that is already claimed fails the whole call
	// with a conflict and nothing is written.
	CreateForDeliveries(ctx context.Context, orderID uint, deliveryIDs []uint, build BuildInvoiceFunc) (*models.Invoice, error)
	GetByID(ctx context.Context, id uint) (*models.Invoice, error)
	ListByOrder(ctx context.Context, orderID uint) ([]models.Invoice, error)
	UpdateStatus(ctx context.Context, id uint, fn InvoiceStatusFunc) (*models.Invoice, error)
	ListOverdueCandidates(ctx context.Context, now time.Time) ([]models.Invoice, error)
}

type invoiceRepository struct {
	db     *gorm.DB
	format NumberFormat
}

func NewInvoiceRepository(db *gorm.DB, format NumberFormat) InvoiceRepository {
	return &invoiceRepository{db: db, format: format}
}

func (r *invoiceRepository) CreateForDeliveries(ctx context.Context, orderID uint, deliveryIDs []uint, build BuildInvoiceFunc) (*models.Invoice, error) {
	var created *models.Invoice
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID, true)
		if err != nil {
			return err
		}
		if err := checkClaimable(order, deliveryIDs); err != nil {
			return err
		}

		invoice, err := build(order)
		if err != nil {
			return err
		}

		seq, err := nextSequence(tx, r.format.Prefix)
		if err != nil {
			return err
		}
		invoice.OrderID = order.ID
		invoice.InvoiceNumber = r.format.Format(seq)
		if err := tx.Create(invoice).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Delivery{}).
			Where("id IN ? AND invoice_id IS NULL", deliveryIDs).
			Updates(map[string]interface{}{"invoice_id": invoice.ID, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(deliveryIDs)) {
			return errs.Conflict("invoice.create", "deliveries were claimed by another invoice")
		}
		created = invoice
		return nil
	})
	if err != nil {
		return nil, translate("invoice.create", err)
	}
	return r.GetByID(ctx, created.ID)
}

// checkClaimable runs against the locked order, so the answer holds until commit.
func checkClaimable(order *models.Order, deliveryIDs []uint) error {
	for _, id := range deliveryIDs {
		_, d := order.Delivery(id)
		if d == nil {
			return errs.NotFound("invoice.create", "delivery %d not found on order %d", id, order.ID)
		}
		if d.IsInvoiced() {
			return errs.Conflict("invoice.create", "delivery %d is already invoiced", id)
		}
	}
	return nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("invoice_lines.position") }).
		First(&invoice, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("invoice.get", "invoice %d not found", id)
		}
		return nil, translate("invoice.get", err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) ListByOrder(ctx context.Context, orderID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("invoice_lines.position") }).
		Where("order_id = ?", orderID).
		Order("id").
		Find(&invoices).Error
	return invoices, translate("invoice.list", err)
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id uint, fn InvoiceStatusFunc) (*models.Invoice, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&invoice, id).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.NotFound("invoice.status", "invoice %d not found", id)
			}
			return err
		}
		if err := fn(&invoice); err != nil {
			return err
		}
		return tx.Model(&models.Invoice{}).Where("id = ?", id).
			Updates(map[string]interface{}{"status": invoice.Status, "updated_at": time.Now()}).Error
	})
	if err != nil {
		return nil, translate("invoice.status", err)
	}
	return r.GetByID(ctx, id)
}

func (r *invoiceRepository) ListOverdueCandidates(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("status IN ? AND due_date IS NOT NULL AND due_date < ?",
			[]models.InvoiceStatus{models.InvoiceSent, models.InvoicePartiallyPaid}, now).
		Order("id").
		Find(&invoices).Error
	return invoices, translate("invoice.overdue", err)
}
