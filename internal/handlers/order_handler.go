package handlers

import (
	"context"
	"net/http"
	"strconv"

	"materials_market/internal/errs"
	"materials_market/internal/models"
	"materials_market/internal/repository"
	"materials_market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type quoteRequest struct {
	QuotedPrice *decimal.Decimal `json:"quoted_price"`
}

type confirmRequest struct {
	Confirmed *bool `json:"confirmed"`
}

type workflowRequest struct {
	Status models.WorkflowStatus `json:"status" binding:"required"`
}

type paymentRequest struct {
	Status models.PaymentStatus `json:"status" binding:"required"`
}

func (h *APIHandler) PlaceOrder(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req services.PlaceOrderInput
	if !bindJSON(c, &req, false) {
		return
	}
	order, err := h.orderService.PlaceOrder(c.Request.Context(), who, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *APIHandler) ListOrders(c *gin.Context) {
	var filter repository.OrderFilter
	if raw := c.Query("client_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client_id", "code": string(errs.KindValidation)})
			return
		}
		filter.ClientID = uint(id)
	}
	filter.Workflow = models.WorkflowStatus(c.Query("workflow"))
	filter.IncludeArchived = c.Query("include_archived") == "true"

	orders, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *APIHandler) GetOrder(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *APIHandler) QuoteOrder(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	quote, err := h.orderService.QuoteOrder(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *APIHandler) ArchiveOrder(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.orderService.ArchiveOrder(c.Request.Context(), who, id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "archived"})
}

func (h *APIHandler) SetDiscount(c *gin.Context) {
	h.amountEdit(c, h.orderService.SetDiscount)
}

func (h *APIHandler) SetOtherCharges(c *gin.Context) {
	h.amountEdit(c, h.orderService.SetOtherCharges)
}

func (h *APIHandler) amountEdit(c *gin.Context, apply func(ctx context.Context, a services.Actor, id uint, v decimal.Decimal) (*models.Order, error)) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req amountRequest
	if !bindJSON(c, &req, false) {
		return
	}
	h.respondOrder(c, func() (*models.Order, error) { return apply(c.Request.Context(), who, id, req.Amount) })
}

func (h *APIHandler) SetQuotedPrice(c *gin.Context) {
	who, orderID, itemID, ok := itemRoute(c)
	if !ok {
		return
	}
	var req quoteRequest
	if !bindJSON(c, &req, false) {
		return
	}
	h.respondOrder(c, func() (*models.Order, error) {
		return h.orderService.SetQuotedPrice(c.Request.Context(), who, orderID, itemID, req.QuotedPrice)
	})
}

func (h *APIHandler) SetSupplierPricing(c *gin.Context) {
	who, orderID, itemID, ok := itemRoute(c)
	if !ok {
		return
	}
	var req services.SupplierPricingInput
	if !bindJSON(c, &req, false) {
		return
	}
	h.respondOrder(c, func() (*models.Order, error) {
		return h.orderService.SetSupplierPricing(c.Request.Context(), who, orderID, itemID, req)
	})
}

func (h *APIHandler) ConfirmItem(c *gin.Context) {
	who, orderID, itemID, ok := itemRoute(c)
	if !ok {
		return
	}
	var req confirmRequest
	if !bindJSON(c, &req, true) {
		return
	}
	confirmed := req.Confirmed == nil || *req.Confirmed
	h.respondOrder(c, func() (*models.Order, error) {
		return h.orderService.SetItemConfirmation(c.Request.Context(), who, orderID, itemID, confirmed)
	})
}

func (h *APIHandler) EligibleSuppliers(c *gin.Context) {
	orderID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := uintParam(c, "itemId")
	if !ok {
		return
	}
	eligible, err := h.supplierService.EligibleSuppliers(c.Request.Context(), orderID, itemID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suppliers": eligible})
}

func (h *APIHandler) AssignSupplier(c *gin.Context) {
	who, orderID, itemID, ok := itemRoute(c)
	if !ok {
		return
	}
	var req services.AssignSupplierInput
	if !bindJSON(c, &req, false) {
		return
	}
	res, err := h.supplierService.AssignSupplier(c.Request.Context(), who, orderID, itemID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *APIHandler) TransitionWorkflow(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req workflowRequest
	if !bindJSON(c, &req, false) {
		return
	}
	h.respondOrder(c, func() (*models.Order, error) {
		return h.workflowService.Transition(c.Request.Context(), who, id, req.Status)
	})
}

func (h *APIHandler) ResumeWorkflow(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	h.respondOrder(c, func() (*models.Order, error) {
		return h.workflowService.Resume(c.Request.Context(), who, id)
	})
}

func (h *APIHandler) ChangePaymentStatus(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if !bindJSON(c, &req, false) {
		return
	}
	change, err := h.workflowService.ProposePaymentStatus(c.Request.Context(), who, id, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	if change.Proposal != nil {
		c.JSON(http.StatusAccepted, gin.H{"proposal": change.Proposal, "confirmation_required": true})
		return
	}
	c.JSON(http.StatusOK, change.Order)
}

func (h *APIHandler) ConfirmPaymentProposal(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	token := c.Param("token")
	h.respondOrder(c, func() (*models.Order, error) {
		return h.workflowService.ConfirmPaymentStatus(c.Request.Context(), who, token)
	})
}

func itemRoute(c *gin.Context) (services.Actor, uint, uint, bool) {
	who, ok := actor(c)
	if !ok {
		return who, 0, 0, false
	}
	orderID, ok := uintParam(c, "id")
	if !ok {
		return who, 0, 0, false
	}
	itemID, ok := uintParam(c, "itemId")
	if !ok {
		return who, 0, 0, false
	}
	return who, orderID, itemID, true
}

func (h *APIHandler) respondOrder(c *gin.Context, run func() (*models.Order, error)) {
	order, err := run()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
