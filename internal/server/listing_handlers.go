package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stowagehq/stowage/backend/internal/apperr"
	"github.com/stowagehq/stowage/backend/internal/listings"
)

type createListingRequestPayload struct {
	Origin         string  `json:"origin"`
	Destination    string  `json:"destination"`
	CapacityKg     float64 `json:"capacity_kg"`
	PricePerKg     float64 `json:"price_per_kg"`
	DeliveryDays   int     `json:"delivery_days"`
	ExpirationDays int     `json:"expiration_days"`
}

func (h *httpHandler) handleCreateListing(c *gin.Context) {
	var request createListingRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	listing, err := h.listings.CreateListing(c.Request.Context(), listings.CreateListingInput{
		OwnerID:        h.session(c).AccountID,
		Origin:         request.Origin,
		Destination:    request.Destination,
		CapacityKg:     request.CapacityKg,
		PricePerKg:     request.PricePerKg,
		DeliveryDays:   request.DeliveryDays,
		ExpirationDays: request.ExpirationDays,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"listing": toListingPayload(listing)})
}

func (h *httpHandler) handleListListings(c *gin.Context) {
	result, err := h.listings.ListListings(c.Request.Context(), c.Query("owner"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	payloads := make([]listingPayload, 0, len(result))
	for _, listing := range result {
		payloads = append(payloads, toListingPayload(listing))
	}
	c.JSON(http.StatusOK, gin.H{"listings": payloads})
}

func (h *httpHandler) handleGetListing(c *gin.Context) {
	listing, err := h.listings.GetListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": toListingPayload(listing)})
}

type updateListingRequestPayload struct {
	Origin         *string  `json:"origin"`
	Destination    *string  `json:"destination"`
	CapacityKg     *float64 `json:"capacity_kg"`
	PricePerKg     *float64 `json:"price_per_kg"`
	DeliveryDays   *int     `json:"delivery_days"`
	ExpirationDays *int     `json:"expiration_days"`
}

func (h *httpHandler) handleUpdateListing(c *gin.Context) {
	var request updateListingRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	listing, err := h.listings.UpdateListing(c.Request.Context(), h.session(c).AccountID, c.Param("id"), listings.UpdateListingInput{
		Origin:         request.Origin,
		Destination:    request.Destination,
		CapacityKg:     request.CapacityKg,
		PricePerKg:     request.PricePerKg,
		DeliveryDays:   request.DeliveryDays,
		ExpirationDays: request.ExpirationDays,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": toListingPayload(listing)})
}

func (h *httpHandler) handleDeleteListing(c *gin.Context) {
	if err := h.listings.DeleteListing(c.Request.Context(), h.session(c).AccountID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted"})
}

func (h *httpHandler) handleToggleListingInterest(c *gin.Context) {
	h.toggleInterest(c, listings.KindLuggage)
}

func (h *httpHandler) handleCompleteListing(c *gin.Context) {
	h.completeListing(c, listings.KindLuggage)
}

type createContainerRequestPayload struct {
	Location       string    `json:"location"`
	Destination    string    `json:"destination"`
	ContainerType  string    `json:"container_type"`
	TaxClearance   string    `json:"tax_clearance"`
	CapacityKg     float64   `json:"capacity_kg"`
	PricePerKg     float64   `json:"price_per_kg"`
	DepartureAt    time.Time `json:"departure_at"`
	ArrivalAt      time.Time `json:"arrival_at"`
	ExpirationDays int       `json:"expiration_days"`
}

func (h *httpHandler) handleCreateContainer(c *gin.Context) {
	var request createContainerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	listing, err := h.listings.CreateContainerListing(c.Request.Context(), listings.CreateContainerInput{
		OwnerID:        h.session(c).AccountID,
		Location:       request.Location,
		Destination:    request.Destination,
		ContainerType:  request.ContainerType,
		TaxClearance:   request.TaxClearance,
		CapacityKg:     request.CapacityKg,
		PricePerKg:     request.PricePerKg,
		DepartureAt:    request.DepartureAt,
		ArrivalAt:      request.ArrivalAt,
		ExpirationDays: request.ExpirationDays,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"listing": toContainerPayload(listing)})
}

func (h *httpHandler) handleListContainers(c *gin.Context) {
	result, err := h.listings.ListContainerListings(c.Request.Context(), c.Query("owner"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	payloads := make([]containerPayload, 0, len(result))
	for _, listing := range result {
		payloads = append(payloads, toContainerPayload(listing))
	}
	c.JSON(http.StatusOK, gin.H{"listings": payloads})
}

func (h *httpHandler) handleGetContainer(c *gin.Context) {
	listing, err := h.listings.GetContainerListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": toContainerPayload(listing)})
}

func (h *httpHandler) handleDeleteContainer(c *gin.Context) {
	if err := h.listings.DeleteContainerListing(c.Request.Context(), h.session(c).AccountID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted"})
}

func (h *httpHandler) handleToggleContainerInterest(c *gin.Context) {
	h.toggleInterest(c, listings.KindContainer)
}

func (h *httpHandler) handleCompleteContainer(c *gin.Context) {
	h.completeListing(c, listings.KindContainer)
}

// toggleInterest flips membership and returns the refreshed set with account
// summaries for display.
func (h *httpHandler) toggleInterest(c *gin.Context, kind listings.Kind) {
	listingID := c.Param("id")
	result, err := h.listings.ToggleInterest(c.Request.Context(), h.session(c).AccountID, kind, listingID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	ids, err := h.listings.InterestedAccountIDs(c.Request.Context(), kind, listingID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	summaries := make([]accountPayload, 0, len(ids))
	for _, id := range ids {
		account, err := h.accounts.GetByID(c.Request.Context(), id)
		if err != nil {
			continue
		}
		summaries = append(summaries, toAccountPayload(account))
	}

	c.JSON(http.StatusOK, gin.H{
		"interested":      result.Interested,
		"interest_count":  result.Count,
		"interested_from": summaries,
	})
}

func (h *httpHandler) completeListing(c *gin.Context, kind listings.Kind) {
	if err := h.listings.Complete(c.Request.Context(), h.session(c).AccountID, kind, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Listing completed"})
}
