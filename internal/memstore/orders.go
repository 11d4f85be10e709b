package memstore

import (
	"context"
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/models"
	"materials_market/internal/repository"
)

type orderStore struct {
	s *Store
}

func (r orderStore) Create(ctx context.Context, order *models.Order) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	order.ID = s.id("orders")
	if order.OrderNumber == "" {
		order.OrderNumber = s.sequence(s.orderFormat)
	}
	order.CreatedAt, order.UpdatedAt = now, now
	for i := range order.Items {
		item := &order.Items[i]
		item.ID = s.id("order_items")
		item.OrderID = order.ID
		item.CreatedAt, item.UpdatedAt = now, now
		for k := range item.Deliveries {
			d := &item.Deliveries[k]
			d.ID = s.id("deliveries")
			d.ItemID = item.ID
			d.InvoiceID = nil
			d.CreatedAt, d.UpdatedAt = now, now
		}
	}
	s.orders[order.ID] = copyOrder(order)
	return nil
}

func (r orderStore) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order(id)
}

// order returns a sorted copy. Callers hold s.mu.
func (s *Store) order(id uint) (*models.Order, error) {
	stored, ok := s.orders[id]
	if !ok {
		return nil, errs.NotFound("order.get", "order %d not found", id)
	}
	out := copyOrder(stored)
	sortGraph(out)
	return out, nil
}

func (r orderStore) List(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Order, 0, len(s.orders))
	for id := uint(1); id <= s.nextID["orders"]; id++ {
		o, ok := s.orders[id]
		if !ok {
			continue
		}
		if filter.ClientID != 0 && o.ClientID != filter.ClientID {
			continue
		}
		if filter.Workflow != "" && o.Workflow != filter.Workflow {
			continue
		}
		if !filter.IncludeArchived && o.ArchivedAt != nil {
			continue
		}
		c := copyOrder(o)
		sortGraph(c)
		out = append(out, *c)
	}
	return out, nil
}

func (r orderStore) Mutate(ctx context.Context, id uint, fn repository.MutateFunc) (*models.Order, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	work, err := s.order(id)
	if err != nil {
		return nil, err
	}
	before := make(map[uint]models.Delivery)
	for _, item := range work.Items {
		for _, d := range item.Deliveries {
			before[d.ID] = d
		}
	}

	if err := fn(work); err != nil {
		return nil, err
	}

	now := s.now()
	seen := make(map[uint]bool, len(before))
	for i := range work.Items {
		item := &work.Items[i]
		if item.ID == 0 {
			item.ID = s.id("order_items")
			item.CreatedAt = now
		}
		item.OrderID = work.ID
		item.UpdatedAt = now
		for k := range item.Deliveries {
			d := &item.Deliveries[k]
			d.ItemID = item.ID
			if d.ID == 0 {
				d.ID = s.id("deliveries")
				d.InvoiceID = nil
				d.CreatedAt, d.UpdatedAt = now, now
				continue
			}
			prev, ok := before[d.ID]
			if !ok {
				return nil, errs.NotFound("order.save", "delivery %d does not belong to order %d", d.ID, work.ID)
			}
			seen[d.ID] = true
			if prev.IsInvoiced() {
				// invoiced rows are never rewritten
				*d = prev
				d.InvoiceID = copyUint(prev.InvoiceID)
				continue
			}
			d.InvoiceID = nil
			d.UpdatedAt = now
		}
	}
	for did, prev := range before {
		if !seen[did] && prev.IsInvoiced() {
			return nil, errs.State("order.save", "delivery %d is invoiced and cannot be removed", did)
		}
	}

	work.UpdatedAt = now
	s.orders[work.ID] = copyOrder(work)
	return s.order(work.ID)
}

func (r orderStore) Archive(ctx context.Context, id uint, at time.Time) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return errs.NotFound("order.archive", "order %d not found", id)
	}
	if o.ArchivedAt == nil {
		o.ArchivedAt = &at
	}
	return nil
}
