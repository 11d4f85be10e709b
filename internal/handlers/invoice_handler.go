package handlers

import (
	"net/http"

	"materials_market/internal/models"
	"materials_market/internal/services"

	"github.com/gin-gonic/gin"
)

type invoiceStatusRequest struct {
	Status models.InvoiceStatus `json:"status" binding:"required"`
}

func (h *APIHandler) PreviewInvoice(c *gin.Context) {
	orderID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req services.PreviewInput
	if !bindJSON(c, &req, false) {
		return
	}
	preview, err := h.invoiceService.Preview(c.Request.Context(), orderID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *APIHandler) CreateInvoice(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	orderID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req services.CreateInvoiceInput
	if !bindJSON(c, &req, false) {
		return
	}
	invoice, err := h.invoiceService.Create(c.Request.Context(), who, orderID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *APIHandler) ListInvoices(c *gin.Context) {
	orderID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	invoices, err := h.invoiceService.ListInvoices(c.Request.Context(), orderID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices, "count": len(invoices)})
}

func (h *APIHandler) GetInvoice(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *APIHandler) TransitionInvoice(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req invoiceStatusRequest
	if !bindJSON(c, &req, false) {
		return
	}
	invoice, err := h.invoiceService.Transition(c.Request.Context(), who, id, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}
