package services

import (
	"context"
	"sort"
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/models"
	"materials_market/internal/pricing"
	"materials_market/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type PreviewInput struct {
	DeliveryIDs []uint          `json:"delivery_ids" validate:"required,min=1,unique,dive,required"`
	Discount    decimal.Decimal `json:"discount"`
}

type CreateInvoiceInput struct {
	DeliveryIDs []uint          `json:"delivery_ids" validate:"required,min=1,unique,dive,required"`
	Discount    decimal.Decimal `json:"discount"`
	Notes       string          `json:"notes" validate:"max=2000"`
	DueDate     *time.Time      `json:"due_date"`
}

// InvoicePreview is the priced projection of a delivery selection. Nothing is
// persisted; the same selection yields the same preview.
type InvoicePreview struct {
	OrderID uint                  `json:"order_id"`
	Lines   []models.InvoiceLine  `json:"lines"`
	Totals  pricing.InvoiceTotals `json:"totals"`
}

type OverdueResult struct {
	Checked int      `json:"checked"`
	Marked  []string `json:"marked"`
}

type InvoiceService interface {
	Preview(ctx context.Context, orderID uint, input PreviewInput) (*InvoicePreview, error)
	Create(ctx context.Context, actor Actor, orderID uint, input CreateInvoiceInput) (*models.Invoice, error)
	ListInvoices(ctx context.Context, orderID uint) ([]models.Invoice, error)
	GetInvoice(ctx context.Context, id uint) (*models.Invoice, error)
	Transition(ctx context.Context, actor Actor, invoiceID uint, target models.InvoiceStatus) (*models.Invoice, error)
	MarkOverdue(ctx context.Context, now time.Time) (*OverdueResult, error)
}

type invoiceService struct {
	orders   repository.OrderRepository
	invoices repository.InvoiceRepository
	calc     *pricing.Calculator
	log      logrus.FieldLogger
	clock    Clock
}

func NewInvoiceService(orders repository.OrderRepository, invoices repository.InvoiceRepository, calc *pricing.Calculator, log logrus.FieldLogger, clock Clock) InvoiceService {
	return &invoiceService{orders: orders, invoices: invoices, calc: calc, log: log.WithField("module", "invoices"), clock: clock}
}

func (s *invoiceService) Preview(ctx context.Context, orderID uint, input PreviewInput) (*InvoicePreview, error) {
	const op = "invoices.preview"
	if err := validateInput(op, input); err != nil {
		return nil, err
	}
	if err := requireNonNegative(op, "discount", input.Discount); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for _, id := range input.DeliveryIDs {
		if _, d := order.Delivery(id); d != nil && d.IsInvoiced() {
			return nil, errs.State(op, "delivery %d is already invoiced", id)
		}
	}
	lines, totals, err := s.price(op, order, input.DeliveryIDs, input.Discount)
	if err != nil {
		return nil, err
	}
	return &InvoicePreview{OrderID: order.ID, Lines: pricing.InvoiceLines(lines), Totals: totals}, nil
}

// price selects and prices deliveries of one order. Lines come out in
// schedule order whatever order the ids were given in.
func (s *invoiceService) price(op string, order *models.Order, deliveryIDs []uint, discount decimal.Decimal) ([]pricing.DeliveryLine, pricing.InvoiceTotals, error) {
	lines := make([]pricing.DeliveryLine, 0, len(deliveryIDs))
	for _, id := range deliveryIDs {
		item, d := order.Delivery(id)
		if d == nil {
			return nil, pricing.InvoiceTotals{}, errs.NotFound(op, "delivery %d not found on order %d", id, order.ID)
		}
		line, err := s.calc.PriceDelivery(item, d)
		if err != nil {
			return nil, pricing.InvoiceTotals{}, err
		}
		lines = append(lines, line)
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].ScheduledAt.Equal(lines[j].ScheduledAt) {
			return lines[i].ScheduledAt.Before(lines[j].ScheduledAt)
		}
		return lines[i].DeliveryID < lines[j].DeliveryID
	})

	totals := s.calc.TotalInvoice(lines, discount)
	if totals.Total.IsNegative() {
		return nil, pricing.InvoiceTotals{}, errs.Validation(op, "discount exceeds the invoice amount")
	}
	return lines, totals, nil
}

func (s *invoiceService) Create(ctx context.Context, actor Actor, orderID uint, input CreateInvoiceInput) (*models.Invoice, error) {
	const op = "invoices.create"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	if err := validateInput(op, input); err != nil {
		return nil, err
	}
	if err := requireNonNegative(op, "discount", input.Discount); err != nil {
		return nil, err
	}
	issued := s.clock.now()
	if input.DueDate != nil && input.DueDate.Before(issued) {
		return nil, errs.Validation(op, "due date is before the issue date")
	}

	cfg := s.calc.Config()
	invoice, err := s.invoices.CreateForDeliveries(ctx, orderID, input.DeliveryIDs, func(order *models.Order) (*models.Invoice, error) {
		lines, totals, err := s.price(op, order, input.DeliveryIDs, input.Discount)
		if err != nil {
			return nil, err
		}
		return &models.Invoice{
			Status:        models.InvoiceDraft,
			Subtotal:      totals.Subtotal,
			DeliveryTotal: totals.DeliveryTotal,
			GSTTax:        totals.GST,
			Discount:      totals.Discount,
			TotalAmount:   totals.Total,
			AdminMargin:   cfg.AdminMargin,
			GSTRate:       cfg.GSTRate,
			IssuedDate:    issued,
			DueDate:       input.DueDate,
			Notes:         input.Notes,
			CreatedBy:     actor.ID,
			Lines:         pricing.InvoiceLines(lines),
		}, nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"op": op, "order_id": orderID, "actor_id": actor.ID}).WithError(err).Warn("invoice creation failed")
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"op": op, "order_id": orderID, "actor_id": actor.ID, "invoice_id": invoice.ID}).
		Infof("invoice %s created for %d deliveries, total %s", invoice.InvoiceNumber, len(invoice.Lines), invoice.TotalAmount.StringFixed(2))
	return invoice, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, orderID uint) ([]models.Invoice, error) {
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.invoices.ListByOrder(ctx, orderID)
}

func (s *invoiceService) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *invoiceService) Transition(ctx context.Context, actor Actor, invoiceID uint, target models.InvoiceStatus) (*models.Invoice, error) {
	const op = "invoices.transition"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	if !target.IsValid() {
		return nil, errs.Validation(op, "unknown invoice status %q", target)
	}
	var from models.InvoiceStatus
	invoice, err := s.invoices.UpdateStatus(ctx, invoiceID, func(inv *models.Invoice) error {
		from = inv.Status
		if !from.CanTransitionTo(target) {
			return errs.State(op, "invoice %s cannot move from %s to %s", inv.InvoiceNumber, from, target)
		}
		inv.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"op": op, "invoice_id": invoiceID, "actor_id": actor.ID, "from": from, "to": target}).
		Info("invoice status changed")
	return invoice, nil
}

// MarkOverdue moves sent and partially paid invoices past their due date to
// overdue. Invoices that changed status in the meantime are skipped.
func (s *invoiceService) MarkOverdue(ctx context.Context, now time.Time) (*OverdueResult, error) {
	const op = "invoices.mark_overdue"
	candidates, err := s.invoices.ListOverdueCandidates(ctx, now)
	if err != nil {
		return nil, err
	}
	result := &OverdueResult{Checked: len(candidates), Marked: make([]string, 0, len(candidates))}
	for _, c := range candidates {
		inv, err := s.invoices.UpdateStatus(ctx, c.ID, func(inv *models.Invoice) error {
			if !inv.Status.CanBecomeOverdue() || inv.DueDate == nil || !inv.DueDate.Before(now) {
				return errs.State(op, "invoice %s is no longer eligible for overdue", inv.InvoiceNumber)
			}
			inv.Status = models.InvoiceOverdue
			return nil
		})
		if err != nil {
			if errs.KindOf(err) == errs.KindState {
				continue
			}
			return result, err
		}
		result.Marked = append(result.Marked, inv.InvoiceNumber)
		s.log.WithFields(logrus.Fields{"op": op, "invoice_id": inv.ID, "order_id": inv.OrderID}).Info("invoice marked overdue")
	}
	return result, nil
}
