package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stowagehq/stowage/backend/internal/apperr"
)

type openConversationRequestPayload struct {
	SellerID string `json:"seller_id"`
	BuyerID  string `json:"buyer_id"`
}

func (h *httpHandler) handleOpenConversation(c *gin.Context) {
	var request openConversationRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	session := h.session(c)
	buyerID := request.BuyerID
	if buyerID == "" {
		buyerID = session.AccountID
	}

	conversation, err := h.conversations.Open(c.Request.Context(), session.AccountID, request.SellerID, buyerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": toConversationPayload(conversation)})
}

func (h *httpHandler) handleListConversations(c *gin.Context) {
	result, err := h.conversations.ListForAccount(c.Request.Context(), h.session(c).AccountID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	payloads := make([]conversationPayload, 0, len(result))
	for _, conversation := range result {
		payloads = append(payloads, toConversationPayload(conversation))
	}
	c.JSON(http.StatusOK, gin.H{"conversations": payloads})
}

func (h *httpHandler) handleMarkConversationRead(c *gin.Context) {
	conversation, err := h.conversations.MarkRead(c.Request.Context(), h.session(c).AccountID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": toConversationPayload(conversation)})
}

func (h *httpHandler) handleListMessages(c *gin.Context) {
	result, err := h.conversations.ListMessages(c.Request.Context(), h.session(c).AccountID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	payloads := make([]messagePayload, 0, len(result))
	for _, message := range result {
		payloads = append(payloads, toMessagePayload(message))
	}
	c.JSON(http.StatusOK, gin.H{"messages": payloads})
}

type postMessageRequestPayload struct {
	Body string `json:"body"`
}

func (h *httpHandler) handlePostMessage(c *gin.Context) {
	var request postMessageRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	message, err := h.conversations.PostMessage(c.Request.Context(), h.session(c).AccountID, c.Param("id"), request.Body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": toMessagePayload(message)})
}
