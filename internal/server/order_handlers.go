package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stowagehq/stowage/backend/internal/apperr"
	"github.com/stowagehq/stowage/backend/internal/listings"
	"github.com/stowagehq/stowage/backend/internal/orders"
)

type createOrderRequestPayload struct {
	ListingID   string  `json:"listing_id"`
	ListingKind string  `json:"listing_kind"`
	QuantityKg  float64 `json:"quantity_kg"`
}

func (h *httpHandler) handleCreateOrder(c *gin.Context) {
	var request createOrderRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	kind, ok := listings.ParseKind(request.ListingKind)
	if !ok {
		h.writeError(c, apperr.Validation("Unknown listing kind"))
		return
	}

	order, err := h.orders.Create(c.Request.Context(), orders.CreateInput{
		BuyerID:     h.session(c).AccountID,
		ListingID:   request.ListingID,
		ListingKind: kind,
		QuantityKg:  request.QuantityKg,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": toOrderPayload(order)})
}

func (h *httpHandler) handleListOrders(c *gin.Context) {
	result, err := h.orders.ListForAccount(c.Request.Context(), h.session(c).AccountID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	payloads := make([]orderPayload, 0, len(result))
	for _, order := range result {
		payloads = append(payloads, toOrderPayload(order))
	}
	c.JSON(http.StatusOK, gin.H{"orders": payloads})
}

func (h *httpHandler) handleGetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), h.session(c).AccountID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": toOrderPayload(order)})
}

type updateOrderStatusRequestPayload struct {
	Status string `json:"status"`
}

func (h *httpHandler) handleUpdateOrderStatus(c *gin.Context) {
	var request updateOrderStatusRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	status, ok := orders.ParseStatus(request.Status)
	if !ok {
		h.writeError(c, apperr.Validation("Unknown order status"))
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), h.session(c).AccountID, c.Param("id"), status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": toOrderPayload(order)})
}
