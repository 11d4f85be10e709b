package repository

import (
	"context"
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	ClientID        uint
	Workflow        models.WorkflowStatus
	IncludeArchived bool
}

// MutateFunc edits a locked order graph in place. Returning an error rolls back.
type MutateFunc func(order *models.Order) error

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	// Mutate loads the order under a row lock, applies fn and persists the
	// resulting graph in the same transaction. Invoice references on deliveries
	// are never written through this path.
	Mutate(ctx context.Context, id uint, fn MutateFunc) (*models.Order, error)
	Archive(ctx context.Context, id uint, at time.Time) error
}

type orderRepository struct {
	db     *gorm.DB
	format NumberFormat
}

func NewOrderRepository(db *gorm.DB, format NumberFormat) OrderRepository {
	return &orderRepository{db: db, format: format}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if order.OrderNumber == "" {
			seq, err := nextSequence(tx, r.format.Prefix)
			if err != nil {
				return err
			}
			order.OrderNumber = r.format.Format(seq)
		}
		return tx.Create(order).Error
	})
	return translate("order.create", err)
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	order, err := loadOrder(r.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, translate("order.get", err)
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := withOrderGraph(r.db.WithContext(ctx))
	if filter.ClientID != 0 {
		q = q.Where("client_id = ?", filter.ClientID)
	}
	if filter.Workflow != "" {
		q = q.Where("workflow = ?", filter.Workflow)
	}
	if !filter.IncludeArchived {
		q = q.Where("archived_at IS NULL")
	}
	var orders []models.Order
	err := q.Order("id").Find(&orders).Error
	return orders, translate("order.list", err)
}

func (r *orderRepository) Mutate(ctx context.Context, id uint, fn MutateFunc) (*models.Order, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, id, true)
		if err != nil {
			return err
		}
		before := snapshotDeliveries(order)
		if err := fn(order); err != nil {
			return err
		}
		return saveOrderGraph(tx, order, before)
	})
	if err != nil {
		return nil, translate("order.mutate", err)
	}
	return r.GetByID(ctx, id)
}

func (r *orderRepository) Archive(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND archived_at IS NULL", id).
		Update("archived_at", at)
	if res.Error != nil {
		return translate("order.archive", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return translate("order.archive", err)
		}
		if count == 0 {
			return errs.NotFound("order.archive", "order %d not found", id)
		}
	}
	return nil
}

func withOrderGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Deliveries", func(db *gorm.DB) *gorm.DB { return db.Order("deliveries.scheduled_at, deliveries.id") })
}

// loadOrder reads the order graph; forUpdate locks the order row, which every
// writer of the graph (Mutate and invoice creation) takes first.
func loadOrder(db *gorm.DB, id uint, forUpdate bool) (*models.Order, error) {
	q := db
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := withOrderGraph(q).First(&order, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("order.load", "order %d not found", id)
		}
		return nil, err
	}
	return &order, nil
}

func snapshotDeliveries(order *models.Order) map[uint]models.Delivery {
	out := make(map[uint]models.Delivery)
	for _, item := range order.Items {
		for _, d := range item.Deliveries {
			out[d.ID] = d
		}
	}
	return out
}

func saveOrderGraph(tx *gorm.DB, order *models.Order, before map[uint]models.Delivery) error {
	if err := tx.Omit(clause.Associations).Save(order).Error; err != nil {
		return err
	}

	seen := make(map[uint]bool, len(before))
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.Omit(clause.Associations).Save(item).Error; err != nil {
			return err
		}
		for k := range item.Deliveries {
			d := &item.Deliveries[k]
			d.ItemID = item.ID
			if d.ID == 0 {
				d.InvoiceID = nil
				if err := tx.Create(d).Error; err != nil {
					return err
				}
				continue
			}
			seen[d.ID] = true
			prev, ok := before[d.ID]
			if !ok {
				return errs.NotFound("order.save", "delivery %d does not belong to order %d", d.ID, order.ID)
			}
			if prev.IsInvoiced() {
				continue
			}
			res := tx.Model(&models.Delivery{}).
				Where("id = ? AND invoice_id IS NULL", d.ID).
				Updates(map[string]interface{}{
					"item_id":      d.ItemID,
					"scheduled_at": d.ScheduledAt,
					"quantity":     d.Quantity,
					"confirmation": d.Confirmation,
					"updated_at":   time.Now(),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return errs.Conflict("order.save", "delivery %d was invoiced concurrently", d.ID)
			}
		}
	}

	for id, prev := range before {
		if seen[id] {
			continue
		}
		if prev.IsInvoiced() {
			return errs.State("order.save", "delivery %d is invoiced and cannot be removed", id)
		}
		res := tx.Where("id = ? AND invoice_id IS NULL", id).Delete(&models.Delivery{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return errs.Conflict("order.save", "delivery %d was invoiced concurrently", id)
		}
	}
	return nil
}
