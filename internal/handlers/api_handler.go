package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"materials_market/internal/errs"
	"materials_market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
)

type APIHandler struct {
	orderService    services.OrderService
	workflowService services.WorkflowService
	supplierService services.SupplierResolver
	deliveryService services.DeliveryLedger
	invoiceService  services.InvoiceService
	log             logrus.FieldLogger
}

func NewAPIHandler(
	orderService services.OrderService,
	workflowService services.WorkflowService,
	supplierService services.SupplierResolver,
	deliveryService services.DeliveryLedger,
	invoiceService services.InvoiceService,
	log logrus.FieldLogger,
) *APIHandler {
	return &APIHandler{
		orderService:    orderService,
		workflowService: workflowService,
		supplierService: supplierService,
		deliveryService: deliveryService,
		invoiceService:  invoiceService,
		log:             log.WithField("module", "http"),
	}
}

func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// actor reads the caller identity set by the authenticating proxy.
func actor(c *gin.Context) (services.Actor, bool) {
	raw := c.GetHeader(headerActorID)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + headerActorID + " header", "code": "unauthorized"})
		return services.Actor{}, false
	}
	return services.Actor{ID: uint(id), Role: c.GetHeader(headerActorRole)}, true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "code": string(errs.KindValidation)})
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes the body; an empty body is accepted when optional is set.
func bindJSON(c *gin.Context, dst interface{}, optional bool) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error(), "code": string(errs.KindValidation)})
		return false
	}
	return true
}

func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindState, errs.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *APIHandler) fail(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{"path": c.FullPath(), "method": c.Request.Method}).WithError(err).Error("request failed")
		c.JSON(status, gin.H{"error": "internal server error", "code": "internal"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": string(kind)})
}
