package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stowagehq/stowage/backend/internal/accounts"
	"github.com/stowagehq/stowage/backend/internal/auth"
	"github.com/stowagehq/stowage/backend/internal/conversations"
	"github.com/stowagehq/stowage/backend/internal/listings"
	"github.com/stowagehq/stowage/backend/internal/orders"
	"github.com/stowagehq/stowage/backend/internal/reviews"
)

const (
	accountIDContextKey = "stowage_account_id"
	isSellerContextKey  = "stowage_is_seller"
)

var (
	errMissingIdentityVerifier = errors.New("identity verifier dependency required")
	errMissingTokenIssuer      = errors.New("token issuer dependency required")
	errMissingAccountsService  = errors.New("accounts service dependency required")
	errMissingListingsService  = errors.New("listings service dependency required")
)

// IdentityVerifier verifies external identity-provider tokens.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (auth.IdentityClaims, error)
}

// SessionTokenManager issues and validates self-signed session tokens.
type SessionTokenManager interface {
	IssueSessionToken(ctx context.Context, accountID string, isSeller bool) (string, int64, error)
	ValidateSessionToken(token string) (auth.Session, error)
}

// Dependencies wires the HTTP layer to its collaborators.
type Dependencies struct {
	IdentityVerifier IdentityVerifier
	TokenManager     SessionTokenManager
	Accounts         *accounts.Service
	Listings         *listings.Service
	Conversations    *conversations.Service
	Orders           *orders.Service
	Reviews          *reviews.Service
	CookieName       string
	Logger           *zap.Logger
}

// NewHTTPHandler builds the marketplace router.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.IdentityVerifier == nil {
		return nil, errMissingIdentityVerifier
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenIssuer
	}
	if deps.Accounts == nil {
		return nil, errMissingAccountsService
	}
	if deps.Listings == nil {
		return nil, errMissingListingsService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		verifier:      deps.IdentityVerifier,
		tokens:        deps.TokenManager,
		accounts:      deps.Accounts,
		listings:      deps.Listings,
		conversations: deps.Conversations,
		orders:        deps.Orders,
		reviews:       deps.Reviews,
		cookieName:    deps.CookieName,
		logger:        logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)
	router.POST("/auth/sync", handler.handleIdentitySync)

	// Identity-token policy: the provider credential itself authorizes these
	// routes; a verified subject without a local account gets a distinct 404.
	identity := router.Group("/")
	identity.Use(handler.requireIdentity)
	identity.GET("/auth/profile", handler.handleProfile)

	router.GET("/accounts/:handle", handler.handleGetAccount)
	router.GET("/listings", handler.handleListListings)
	router.GET("/listings/:id", handler.handleGetListing)
	router.GET("/containers", handler.handleListContainers)
	router.GET("/containers/:id", handler.handleGetContainer)
	router.GET("/sellers/:id/reviews", handler.handleListSellerReviews)

	protected := router.Group("/")
	protected.Use(handler.requireSession)
	{
		protected.GET("/accounts/me", handler.handleMe)
		protected.PATCH("/accounts/me", handler.handleUpdateMe)
		protected.DELETE("/accounts/me", handler.handleDeleteMe)
		protected.POST("/accounts/me/seller", handler.handleBecomeSeller)

		protected.POST("/listings", handler.handleCreateListing)
		protected.PATCH("/listings/:id", handler.handleUpdateListing)
		protected.DELETE("/listings/:id", handler.handleDeleteListing)
		protected.POST("/listings/:id/interest", handler.handleToggleListingInterest)
		protected.POST("/listings/:id/complete", handler.handleCompleteListing)

		protected.POST("/containers", handler.handleCreateContainer)
		protected.DELETE("/containers/:id", handler.handleDeleteContainer)
		protected.POST("/containers/:id/interest", handler.handleToggleContainerInterest)
		protected.POST("/containers/:id/complete", handler.handleCompleteContainer)

		protected.POST("/conversations", handler.handleOpenConversation)
		protected.GET("/conversations", handler.handleListConversations)
		protected.POST("/conversations/:id/read", handler.handleMarkConversationRead)
		protected.GET("/conversations/:id/messages", handler.handleListMessages)
		protected.POST("/conversations/:id/messages", handler.handlePostMessage)

		protected.POST("/orders", handler.handleCreateOrder)
		protected.GET("/orders", handler.handleListOrders)
		protected.GET("/orders/:id", handler.handleGetOrder)
		protected.PATCH("/orders/:id/status", handler.handleUpdateOrderStatus)

		protected.POST("/reviews", handler.handleCreateReview)
	}

	return router, nil
}

type httpHandler struct {
	verifier      IdentityVerifier
	tokens        SessionTokenManager
	accounts      *accounts.Service
	listings      *listings.Service
	conversations *conversations.Service
	orders        *orders.Service
	reviews       *reviews.Service
	cookieName    string
	logger        *zap.Logger
}

func (h *httpHandler) session(c *gin.Context) auth.Session {
	return auth.Session{
		AccountID: c.GetString(accountIDContextKey),
		IsSeller:  c.GetBool(isSellerContextKey),
	}
}
