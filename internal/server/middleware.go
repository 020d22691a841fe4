package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stowagehq/stowage/backend/internal/apperr"
	"github.com/stowagehq/stowage/backend/internal/auth"
)

// extractCredential pulls the bearer token from the Authorization header or,
// failing that, the configured cookie.
func (h *httpHandler) extractCredential(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")); token != "" {
			return token
		}
	}
	if h.cookieName != "" {
		if cookie, err := c.Cookie(h.cookieName); err == nil {
			return strings.TrimSpace(cookie)
		}
	}
	return ""
}

// requireSession authorizes requests with a self-issued session token. The
// seller flag travels in the token, so no storage lookup happens here.
func (h *httpHandler) requireSession(c *gin.Context) {
	credential := h.extractCredential(c)
	if credential == "" {
		h.abortWithError(c, apperr.New(apperr.KindAuth, msgMissingCredential))
		return
	}

	session, err := h.tokens.ValidateSessionToken(credential)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			h.logger.Info("session token expired", zap.Error(err))
		} else {
			h.logger.Warn("session token validation failed", zap.Error(err))
		}
		h.abortWithError(c, err)
		return
	}

	c.Set(accountIDContextKey, session.AccountID)
	c.Set(isSellerContextKey, session.IsSeller)
	c.Next()
}

// requireIdentity authorizes requests carrying a provider ID token. A verified
// subject with no local account fails with a distinct profile-not-found error:
// the remedy is finishing onboarding, not re-authenticating.
func (h *httpHandler) requireIdentity(c *gin.Context) {
	credential := h.extractCredential(c)
	if credential == "" {
		h.abortWithError(c, apperr.New(apperr.KindAuth, msgMissingCredential))
		return
	}

	claims, err := h.verifier.Verify(c.Request.Context(), credential)
	if err != nil {
		h.logger.Warn("identity token verification failed", zap.Error(err))
		h.abortWithError(c, err)
		return
	}

	account, err := h.accounts.GetByExternalID(c.Request.Context(), claims.Subject)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.Set(accountIDContextKey, account.ID)
	c.Set(isSellerContextKey, account.IsSeller)
	c.Next()
}
