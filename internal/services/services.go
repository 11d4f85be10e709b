package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/models"
	"materials_market/internal/pricing"
	"materials_market/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Actor identifies who performs a mutating operation. Permission checks happen
// before the call; the services only record the actor.
type Actor struct {
	ID   uint   `json:"id"`
	Role string `json:"role"`
}

// Locker serializes mutations of one order across requests.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ProposalStore holds sensitive payment transitions until they are confirmed.
type ProposalStore interface {
	SaveProposal(ctx context.Context, p *models.PaymentProposal) error
	TakeProposal(ctx context.Context, token string) (*models.PaymentProposal, error)
}

// Clock returns the current time; tests pin it.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

var validate = validator.New()

func validateInput(op string, input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Wrap(errs.KindValidation, op, err, "invalid input")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return errs.Validation(op, "%s", strings.Join(msgs, "; "))
}

func requireActor(op string, actor Actor) error {
	if actor.ID == 0 {
		return errs.Validation(op, "actor is required")
	}
	return nil
}

func requirePositive(op, field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return errs.Validation(op, "%s must be greater than zero", field)
	}
	return nil
}

func requireNonNegative(op, field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return errs.Validation(op, "%s must not be negative", field)
	}
	return nil
}

func requireEditable(op string, order *models.Order) error {
	if !order.CanEdit() {
		return errs.State(op, "order %s is delivered and locked for editing", order.OrderNumber)
	}
	return nil
}

func findItem(op string, order *models.Order, itemID uint) (*models.OrderItem, error) {
	item := order.Item(itemID)
	if item == nil {
		return nil, errs.NotFound(op, "item %d not found on order %d", itemID, order.ID)
	}
	return item, nil
}

// rejectNegativeTotal enforces the reject policy for customer totals below zero.
func rejectNegativeTotal(op string, calc *pricing.Calculator, order *models.Order) error {
	if b := calc.OrderTotals(order); b.Negative() {
		return errs.Validation(op, "edit would make the order total negative (%s)", b.CustomerTotal.StringFixed(2))
	}
	return nil
}

func orderLockKey(orderID uint) string {
	return strconv.FormatUint(uint64(orderID), 10)
}

// mutateOrder runs fn on the locked order graph, holding the per-order lock
// around the storage transaction.
func mutateOrder(ctx context.Context, locker Locker, orders repository.OrderRepository, orderID uint, fn repository.MutateFunc) (*models.Order, error) {
	unlock, err := locker.Lock(ctx, orderLockKey(orderID))
	if err != nil {
		return nil, err
	}
	defer unlock()
	return orders.Mutate(ctx, orderID, fn)
}
