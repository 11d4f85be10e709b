package memstore

import (
	"context"
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/models"
	"materials_market/internal/repository"
)

type invoiceStore struct {
	s *Store
}

func (r invoiceStore) CreateForDeliveries(ctx context.Context, orderID uint, deliveryIDs []uint, build repository.BuildInvoiceFunc) (*models.Invoice, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.order(orderID)
	if err != nil {
		return nil, err
	}
	claimed := make(map[uint]bool, len(deliveryIDs))
	for _, id := range deliveryIDs {
		_, d := order.Delivery(id)
		if d == nil {
			return nil, errs.NotFound("invoice.create", "delivery %d not found on order %d", id, orderID)
		}
		if d.IsInvoiced() || claimed[id] {
			return nil, errs.Conflict("invoice.create", "delivery %d is already invoiced", id)
		}
		claimed[id] = true
	}

	invoice, err := build(order)
	if err != nil {
		return nil, err
	}

	now := s.now()
	invoice.ID = s.id("invoices")
	invoice.OrderID = orderID
	invoice.InvoiceNumber = s.sequence(s.invoiceFormat)
	invoice.CreatedAt, invoice.UpdatedAt = now, now
	for i := range invoice.Lines {
		invoice.Lines[i].ID = s.id("invoice_lines")
		invoice.Lines[i].InvoiceID = invoice.ID
	}

	stored := s.orders[orderID]
	for i := range stored.Items {
		for k := range stored.Items[i].Deliveries {
			d := &stored.Items[i].Deliveries[k]
			if claimed[d.ID] {
				invID := invoice.ID
				d.InvoiceID = &invID
				d.UpdatedAt = now
			}
		}
	}
	s.invoices[invoice.ID] = copyInvoice(invoice)
	return copyInvoice(invoice), nil
}

func (r invoiceStore) GetByID(ctx context.Context, id uint) (*models.Invoice, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, errs.NotFound("invoice.get", "invoice %d not found", id)
	}
	return copyInvoice(inv), nil
}

func (r invoiceStore) ListByOrder(ctx context.Context, orderID uint) ([]models.Invoice, error) {
	return r.s.filterInvoices(func(inv *models.Invoice) bool { return inv.OrderID == orderID }), nil
}

func (r invoiceStore) UpdateStatus(ctx context.Context, id uint, fn repository.InvoiceStatusFunc) (*models.Invoice, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.invoices[id]
	if !ok {
		return nil, errs.NotFound("invoice.status", "invoice %d not found", id)
	}
	work := copyInvoice(stored)
	if err := fn(work); err != nil {
		return nil, err
	}
	stored.Status = work.Status
	stored.UpdatedAt = s.now()
	return copyInvoice(stored), nil
}

func (r invoiceStore) ListOverdueCandidates(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	return r.s.filterInvoices(func(inv *models.Invoice) bool {
		return inv.Status.CanBecomeOverdue() && inv.DueDate != nil && inv.DueDate.Before(now)
	}), nil
}

func (s *Store) filterInvoices(keep func(*models.Invoice) bool) []models.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Invoice, 0)
	for id := uint(1); id <= s.nextID["invoices"]; id++ {
		inv, ok := s.invoices[id]
		if ok && keep(inv) {
			out = append(out, *copyInvoice(inv))
		}
	}
	return out
}
