package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stowagehq/stowage/backend/internal/apperr"
	"github.com/stowagehq/stowage/backend/internal/listings"
	"github.com/stowagehq/stowage/backend/internal/reviews"
)

type createReviewRequestPayload struct {
	SellerID    string `json:"seller_id"`
	ListingID   string `json:"listing_id"`
	ListingKind string `json:"listing_kind"`
	Stars       int    `json:"stars"`
	Comment     string `json:"comment"`
}

func (h *httpHandler) handleCreateReview(c *gin.Context) {
	var request createReviewRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	kind := listings.KindLuggage
	if request.ListingKind != "" {
		parsed, ok := listings.ParseKind(request.ListingKind)
		if !ok {
			h.writeError(c, apperr.Validation("Unknown listing kind"))
			return
		}
		kind = parsed
	}

	review, err := h.reviews.Create(c.Request.Context(), reviews.CreateInput{
		ReviewerID:  h.session(c).AccountID,
		SellerID:    request.SellerID,
		ListingID:   request.ListingID,
		ListingKind: kind,
		Stars:       request.Stars,
		Comment:     request.Comment,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": toReviewPayload(review)})
}

func (h *httpHandler) handleListSellerReviews(c *gin.Context) {
	result, err := h.reviews.ListBySeller(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	payloads := make([]reviewPayload, 0, len(result))
	for _, review := range result {
		payloads = append(payloads, toReviewPayload(review))
	}
	c.JSON(http.StatusOK, gin.H{"reviews": payloads})
}
