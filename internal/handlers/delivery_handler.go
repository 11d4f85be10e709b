package handlers

import (
	"net/http"

	"materials_market/internal/models"
	"materials_market/internal/services"

	"github.com/gin-gonic/gin"
)

func (h *APIHandler) ScheduleDelivery(c *gin.Context) {
	who, orderID, itemID, ok := itemRoute(c)
	if !ok {
		return
	}
	var req services.DeliveryInput
	if !bindJSON(c, &req, false) {
		return
	}
	order, err := h.deliveryService.ScheduleDelivery(c.Request.Context(), who, orderID, itemID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *APIHandler) ReplaceSchedule(c *gin.Context) {
	who, orderID, itemID, ok := itemRoute(c)
	if !ok {
		return
	}
	var req services.ScheduleInput
	if !bindJSON(c, &req, false) {
		return
	}
	h.respondOrder(c, func() (*models.Order, error) {
		return h.deliveryService.ReplaceSchedule(c.Request.Context(), who, orderID, itemID, req)
	})
}

func (h *APIHandler) RescheduleDelivery(c *gin.Context) {
	who, orderID, deliveryID, ok := deliveryRoute(c)
	if !ok {
		return
	}
	var req services.DeliveryInput
	if !bindJSON(c, &req, false) {
		return
	}
	h.respondOrder(c, func() (*models.Order, error) {
		return h.deliveryService.RescheduleDelivery(c.Request.Context(), who, orderID, deliveryID, req)
	})
}

func (h *APIHandler) RemoveDelivery(c *gin.Context) {
	who, orderID, deliveryID, ok := deliveryRoute(c)
	if !ok {
		return
	}
	h.respondOrder(c, func() (*models.Order, error) {
		return h.deliveryService.RemoveDelivery(c.Request.Context(), who, orderID, deliveryID)
	})
}

func (h *APIHandler) ConfirmDelivery(c *gin.Context) {
	who, orderID, deliveryID, ok := deliveryRoute(c)
	if !ok {
		return
	}
	h.respondOrder(c, func() (*models.Order, error) {
		return h.deliveryService.ConfirmDelivery(c.Request.Context(), who, orderID, deliveryID)
	})
}

func deliveryRoute(c *gin.Context) (services.Actor, uint, uint, bool) {
	who, ok := actor(c)
	if !ok {
		return who, 0, 0, false
	}
	orderID, ok := uintParam(c, "id")
	if !ok {
		return who, 0, 0, false
	}
	deliveryID, ok := uintParam(c, "deliveryId")
	if !ok {
		return who, 0, 0, false
	}
	return who, orderID, deliveryID, true
}
