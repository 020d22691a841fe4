package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stowagehq/stowage/backend/internal/accounts"
	"github.com/stowagehq/stowage/backend/internal/apperr"
)

func (h *httpHandler) handleMe(c *gin.Context) {
	account, err := h.accounts.GetByID(c.Request.Context(), h.session(c).AccountID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": toAccountPayload(account)})
}

type updateAccountRequestPayload struct {
	Handle      string `json:"handle"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
	Phone       string `json:"phone"`
	Bio         string `json:"bio"`
}

func (h *httpHandler) handleUpdateMe(c *gin.Context) {
	var request updateAccountRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	account, err := h.accounts.Update(c.Request.Context(), h.session(c).AccountID, accounts.UpdateInput{
		Handle:      request.Handle,
		Email:       request.Email,
		Country:     request.Country,
		DisplayName: request.DisplayName,
		PhotoURL:    request.PhotoURL,
		Phone:       request.Phone,
		Bio:         request.Bio,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": toAccountPayload(account)})
}

// handleDeleteMe removes the caller's own account. The credential is the
// ownership check: there is no path to delete anyone else.
func (h *httpHandler) handleDeleteMe(c *gin.Context) {
	if err := h.accounts.Delete(c.Request.Context(), h.session(c).AccountID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

// handleBecomeSeller flips the seller flag and reissues the session token so
// the new role is visible without a re-login.
func (h *httpHandler) handleBecomeSeller(c *gin.Context) {
	account, err := h.accounts.BecomeSeller(c.Request.Context(), h.session(c).AccountID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), account.ID, account.IsSeller)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account": toAccountPayload(account),
		"token":   tokenPayload{AccessToken: token, ExpiresIn: expiresIn, TokenType: "Bearer"},
	})
}

func (h *httpHandler) handleGetAccount(c *gin.Context) {
	account, err := h.accounts.GetByHandle(c.Request.Context(), c.Param("handle"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": toAccountPayload(account)})
}
