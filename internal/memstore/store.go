// Package memstore keeps the whole order graph in process memory. It backs the
// memory storage driver and the service tests. A single mutex stands in for
// database transactions, so every operation is atomic.
package memstore

import (
	"sort"
	"sync"
	"time"

	"materials_market/internal/models"
	"materials_market/internal/repository"
)

type Store struct {
	mu            sync.Mutex
	orderFormat   repository.NumberFormat
	invoiceFormat repository.NumberFormat
	now           func() time.Time

	orders    map[uint]*models.Order
	invoices  map[uint]*models.Invoice
	suppliers map[uint]*models.Supplier
	settings  map[string]*models.PricingSetting
	sequences map[string]int64
	nextID    map[string]uint
}

func New(orderFormat, invoiceFormat repository.NumberFormat) *Store {
	return &Store{
		orderFormat:   orderFormat,
		invoiceFormat: invoiceFormat,
		now:           time.Now,
		orders:        make(map[uint]*models.Order),
		invoices:      make(map[uint]*models.Invoice),
		suppliers:     make(map[uint]*models.Supplier),
		settings:      make(map[string]*models.PricingSetting),
		sequences:     make(map[string]int64),
		nextID:        make(map[string]uint),
	}
}

func (s *Store) Orders() repository.OrderRepository                   { return orderStore{s} }
func (s *Store) Invoices() repository.InvoiceRepository               { return invoiceStore{s} }
func (s *Store) Suppliers() repository.SupplierRepository             { return supplierStore{s} }
func (s *Store) PricingSettings() repository.PricingSettingsRepository { return settingsStore{s} }

// id hands out per-table serial ids. Callers hold s.mu.
func (s *Store) id(table string) uint {
	s.nextID[table]++
	return s.nextID[table]
}

func (s *Store) sequence(format repository.NumberFormat) string {
	s.sequences[format.Prefix]++
	return format.Format(s.sequences[format.Prefix])
}

func copyUint(p *uint) *uint {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyOrder(o *models.Order) *models.Order {
	out := *o
	out.ArchivedAt = copyTime(o.ArchivedAt)
	out.Items = make([]models.OrderItem, len(o.Items))
	for i, item := range o.Items {
		c := item
		c.SupplierID = copyUint(item.SupplierID)
		c.ChosenOfferID = copyUint(item.ChosenOfferID)
		c.Deliveries = make([]models.Delivery, len(item.Deliveries))
		for k, d := range item.Deliveries {
			dc := d
			dc.InvoiceID = copyUint(d.InvoiceID)
			c.Deliveries[k] = dc
		}
		out.Items[i] = c
	}
	return &out
}

func copyInvoice(inv *models.Invoice) *models.Invoice {
	out := *inv
	out.DueDate = copyTime(inv.DueDate)
	out.Lines = append([]models.InvoiceLine(nil), inv.Lines...)
	return &out
}

func copySupplier(sup *models.Supplier) *models.Supplier {
	out := *sup
	out.Zones = append([]models.DeliveryZone(nil), sup.Zones...)
	out.Offers = append([]models.SupplierOffer(nil), sup.Offers...)
	return &out
}

// sortGraph matches the ordering the postgres repository preloads with.
func sortGraph(o *models.Order) {
	sort.Slice(o.Items, func(i, j int) bool { return o.Items[i].ID < o.Items[j].ID })
	for i := range o.Items {
		ds := o.Items[i].Deliveries
		sort.SliceStable(ds, func(a, b int) bool {
			if ds[a].ScheduledAt.Equal(ds[b].ScheduledAt) {
				return ds[a].ID < ds[b].ID
			}
			return ds[a].ScheduledAt.Before(ds[b].ScheduledAt)
		})
	}
}
