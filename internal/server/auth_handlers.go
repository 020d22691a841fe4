package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stowagehq/stowage/backend/internal/accounts"
	"github.com/stowagehq/stowage/backend/internal/apperr"
)

type registerRequestPayload struct {
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
	Bio      string `json:"bio"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), accounts.RegisterInput{
		Handle:   request.Handle,
		Email:    request.Email,
		Password: request.Password,
		Country:  request.Country,
		Phone:    request.Phone,
		Bio:      request.Bio,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), account.ID, account.IsSeller)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"account": toAccountPayload(account),
		"token":   tokenPayload{AccessToken: token, ExpiresIn: expiresIn, TokenType: "Bearer"},
	})
}

type loginRequestPayload struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	account, err := h.accounts.Login(c.Request.Context(), request.Handle, request.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), account.ID, account.IsSeller)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account": toAccountPayload(account),
		"token":   tokenPayload{AccessToken: token, ExpiresIn: expiresIn, TokenType: "Bearer"},
	})
}

type identitySyncRequestPayload struct {
	IDToken string `json:"id_token"`
	Handle  string `json:"handle"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
	Bio     string `json:"bio"`
}

// handleIdentitySync verifies a provider ID token and reconciles it against
// the local account store, creating the account on first sight.
func (h *httpHandler) handleIdentitySync(c *gin.Context) {
	var request identitySyncRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	credential := strings.TrimSpace(request.IDToken)
	if credential == "" {
		credential = h.extractCredential(c)
	}
	if credential == "" {
		h.writeError(c, apperr.New(apperr.KindAuth, msgMissingCredential))
		return
	}

	claims, err := h.verifier.Verify(c.Request.Context(), credential)
	if err != nil {
		h.logger.Warn("identity token verification failed", zap.Error(err))
		h.writeError(c, err)
		return
	}

	result, err := h.accounts.Reconcile(c.Request.Context(), accounts.ReconcileInput{
		ExternalID:  claims.Subject,
		Email:       claims.Email,
		Handle:      request.Handle,
		Country:     request.Country,
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
		Phone:       request.Phone,
		Bio:         request.Bio,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), result.Account.ID, result.Account.IsSeller)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if result.IsNew {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"account":          toAccountPayload(result.Account),
		"is_new_account":   result.IsNew,
		"profile_complete": result.ProfileComplete,
		"token":            tokenPayload{AccessToken: token, ExpiresIn: expiresIn, TokenType: "Bearer"},
	})
}

// handleProfile serves the identity-token policy: the provider credential was
// resolved to a local account by the middleware.
func (h *httpHandler) handleProfile(c *gin.Context) {
	account, err := h.accounts.GetByID(c.Request.Context(), h.session(c).AccountID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": toAccountPayload(account)})
}
