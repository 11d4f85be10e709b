package services

import (
	"context"
	"errors"
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/models"
	"materials_market/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PaymentChange is the outcome of a payment status request: either the order
// after an immediate change, or a proposal that still needs confirming.
type PaymentChange struct {
	Order    *models.Order           `json:"order,omitempty"`
	Proposal *models.PaymentProposal `json:"proposal,omitempty"`
}

type WorkflowService interface {
	Transition(ctx context.Context, actor Actor, orderID uint, target models.WorkflowStatus) (*models.Order, error)
	Resume(ctx context.Context, actor Actor, orderID uint) (*models.Order, error)
	ProposePaymentStatus(ctx context.Context, actor Actor, orderID uint, target models.PaymentStatus) (*PaymentChange, error)
	ConfirmPaymentStatus(ctx context.Context, actor Actor, token string) (*models.Order, error)
}

type workflowService struct {
	orders      repository.OrderRepository
	proposals   ProposalStore
	locker      Locker
	proposalTTL time.Duration
	log         logrus.FieldLogger
	clock       Clock
}

func NewWorkflowService(orders repository.OrderRepository, proposals ProposalStore, locker Locker, proposalTTL time.Duration, log logrus.FieldLogger, clock Clock) WorkflowService {
	return &workflowService{
		orders:      orders,
		proposals:   proposals,
		locker:      locker,
		proposalTTL: proposalTTL,
		log:         log.WithField("module", "workflow"),
		clock:       clock,
	}
}

func (s *workflowService) Transition(ctx context.Context, actor Actor, orderID uint, target models.WorkflowStatus) (*models.Order, error) {
	const op = "workflow.transition"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	if !target.IsValid() {
		return nil, errs.Validation(op, "unknown workflow status %q", target)
	}
	var from models.WorkflowStatus
	order, err := mutateOrder(ctx, s.locker, s.orders, orderID, func(order *models.Order) error {
		from = order.Workflow
		return applyWorkflow(op, order, target)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"op": op, "order_id": orderID, "actor_id": actor.ID, "from": from, "to": target}).
		Info("workflow changed")
	return order, nil
}

func (s *workflowService) Resume(ctx context.Context, actor Actor, orderID uint) (*models.Order, error) {
	const op = "workflow.resume"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	order, err := mutateOrder(ctx, s.locker, s.orders, orderID, func(order *models.Order) error {
		if order.Workflow != models.WorkflowOnHold {
			return errs.State(op, "order %s is not on hold", order.OrderNumber)
		}
		return applyWorkflow(op, order, order.HeldFrom)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"op": op, "order_id": orderID, "actor_id": actor.ID, "to": order.Workflow}).
		Info("workflow resumed")
	return order, nil
}

// applyWorkflow validates and applies one workflow edge, including the guards
// that depend on the order contents.
func applyWorkflow(op string, order *models.Order, target models.WorkflowStatus) error {
	current := order.Workflow
	if current.IsTerminal() {
		return errs.State(op, "order %s is delivered", order.OrderNumber)
	}

	if current == models.WorkflowOnHold {
		resumeFrom := order.HeldFrom
		if resumeFrom == "" {
			resumeFrom = models.WorkflowRequested
		}
		if target == models.WorkflowOnHold || (target != resumeFrom && !resumeFrom.CanTransitionTo(target)) {
			return errs.State(op, "cannot leave on_hold for %s (held from %s)", target, resumeFrom)
		}
	} else if !current.CanTransitionTo(target) {
		return errs.State(op, "cannot move order from %s to %s", current, target)
	}

	switch target {
	case models.WorkflowSupplierAssigned, models.WorkflowPaymentRequested:
		if !order.AllSuppliersAssigned() {
			return errs.State(op, "every item needs a supplier before %s", target)
		}
	case models.WorkflowSupplierMissing:
		if order.AllSuppliersAssigned() {
			return errs.State(op, "every item already has a supplier")
		}
	case models.WorkflowDelivered:
		for i := range order.Items {
			item := &order.Items[i]
			if !item.HasSupplier() || !item.SupplierConfirms() {
				return errs.State(op, "item %d is not supplier confirmed", item.ID)
			}
		}
	}

	if target == models.WorkflowOnHold {
		order.HeldFrom = current
	} else {
		order.HeldFrom = ""
	}
	order.Workflow = target
	return nil
}

func (s *workflowService) ProposePaymentStatus(ctx context.Context, actor Actor, orderID uint, target models.PaymentStatus) (*PaymentChange, error) {
	const op = "payment.propose"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	if !target.IsValid() {
		return nil, errs.Validation(op, "unknown payment status %q", target)
	}

	if !target.IsSensitive() {
		order, _, err := s.applyPayment(ctx, op, actor, orderID, "", target)
		if err != nil {
			return nil, err
		}
		return &PaymentChange{Order: order}, nil
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.PaymentStatus.CanTransitionTo(target) {
		return nil, errs.State(op, "cannot move payment from %s to %s", order.PaymentStatus, target)
	}
	proposal := &models.PaymentProposal{
		Token:      uuid.NewString(),
		OrderID:    orderID,
		From:       order.PaymentStatus,
		To:         target,
		ProposedBy: actor.ID,
		ExpiresAt:  s.clock.now().Add(s.proposalTTL),
	}
	if err := s.proposals.SaveProposal(ctx, proposal); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"op": op, "order_id": orderID, "actor_id": actor.ID, "from": proposal.From, "to": target}).
		Info("sensitive payment change proposed")
	return &PaymentChange{Proposal: proposal}, nil
}

func (s *workflowService) ConfirmPaymentStatus(ctx context.Context, actor Actor, token string) (*models.Order, error) {
	const op = "payment.confirm"
	if err := requireActor(op, actor); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, errs.Validation(op, "token is required")
	}
	proposal, err := s.proposals.TakeProposal(ctx, token)
	if err != nil {
		return nil, err
	}
	order, rejected, err := s.applyPayment(ctx, op, actor, proposal.OrderID, proposal.From, proposal.To)
	if err != nil && !rejected && !errors.Is(err, errs.ErrNotFound) {
		// The order never judged the proposal, so the token stays usable.
		if saveErr := s.proposals.SaveProposal(context.WithoutCancel(ctx), proposal); saveErr != nil {
			s.log.WithFields(logrus.Fields{"op": op, "order_id": proposal.OrderID}).WithError(saveErr).
				Warn("could not restore payment proposal")
		}
	}
	return order, err
}

// applyPayment moves the payment status; a non-empty expected status must still
// be current or the change is a conflict. rejected reports that the order's
// current status refused the change.
func (s *workflowService) applyPayment(ctx context.Context, op string, actor Actor, orderID uint, expected, target models.PaymentStatus) (order *models.Order, rejected bool, err error) {
	var from models.PaymentStatus
	order, err = mutateOrder(ctx, s.locker, s.orders, orderID, func(order *models.Order) error {
		from = order.PaymentStatus
		if expected != "" && from != expected {
			rejected = true
			return errs.Conflict(op, "payment status changed from %s to %s since the proposal", expected, from)
		}
		if !from.CanTransitionTo(target) {
			rejected = true
			return errs.State(op, "cannot move payment from %s to %s", from, target)
		}
		order.PaymentStatus = target
		if target == models.PaymentPaid {
			for i := range order.Items {
				order.Items[i].IsPaid = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, rejected, err
	}
	s.log.WithFields(logrus.Fields{"op": op, "order_id": orderID, "actor_id": actor.ID, "from": from, "to": target}).
		Info("payment status changed")
	return order, false, nil
}
