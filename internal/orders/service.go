package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stowagehq/stowage/backend/internal/apperr"
	"github.com/stowagehq/stowage/backend/internal/listings"
)

var errMissingDatabase = errors.New("orders: database handle is required")

// SalesCounter credits a listing with a completed sale. Satisfied by the
// listings service.
type SalesCounter interface {
	IncrementSales(ctx context.Context, kind listings.Kind, listingID string) error
}

// ListingReader loads the listing snapshot an order is created against.
type ListingReader interface {
	GetListing(ctx context.Context, id string) (listings.Listing, error)
	GetContainerListing(ctx context.Context, id string) (listings.ContainerListing, error)
}

// ServiceConfig describes the dependencies required for order management.
type ServiceConfig struct {
	Database *gorm.DB
	Listings ListingReader
	Sales    SalesCounter
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service manages the order lifecycle.
type Service struct {
	db       *gorm.DB
	listings ListingReader
	sales    SalesCounter
	now      func() time.Time
	logger   *zap.Logger
}

// NewService constructs the order service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       cfg.Database,
		listings: cfg.Listings,
		sales:    cfg.Sales,
		now:      clock,
		logger:   logger,
	}, nil
}

// CreateInput carries a buyer's order request.
type CreateInput struct {
	BuyerID     string
	ListingID   string
	ListingKind listings.Kind
	QuantityKg  float64
}

// Create places an order against a listing, snapshotting the current price.
func (s *Service) Create(ctx context.Context, input CreateInput) (Order, error) {
	if input.QuantityKg <= 0 {
		return Order{}, apperr.Validation("Quantity must be positive")
	}

	var (
		sellerID  string
		unitPrice float64
		completed bool
	)
	switch input.ListingKind {
	case listings.KindContainer:
		listing, err := s.listings.GetContainerListing(ctx, input.ListingID)
		if err != nil {
			return Order{}, err
		}
		sellerID, unitPrice, completed = listing.OwnerID, listing.PricePerKg, listing.Completed
	default:
		listing, err := s.listings.GetListing(ctx, input.ListingID)
		if err != nil {
			return Order{}, err
		}
		sellerID, unitPrice, completed = listing.OwnerID, listing.PricePerKg, listing.Completed
	}

	if completed {
		return Order{}, apperr.Validation("Listing is no longer available")
	}
	if sellerID == input.BuyerID {
		return Order{}, apperr.Validation("You cannot order from your own listing")
	}

	order := Order{
		ID:          uuid.NewString(),
		ListingID:   input.ListingID,
		ListingKind: input.ListingKind,
		SellerID:    sellerID,
		BuyerID:     input.BuyerID,
		QuantityKg:  input.QuantityKg,
		UnitPrice:   unitPrice,
		TotalPrice:  unitPrice * input.QuantityKg,
		Status:      StatusPending,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return Order{}, err
	}
	return order, nil
}

// Get loads one order, restricted to its parties.
func (s *Service) Get(ctx context.Context, callerID, orderID string) (Order, error) {
	var order Order
	err := s.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Order{}, apperr.NotFound("Order not found")
	}
	if err != nil {
		return Order{}, err
	}
	if order.SellerID != callerID && order.BuyerID != callerID {
		return Order{}, apperr.Forbidden("Only an order party may view it")
	}
	return order, nil
}

// ListForAccount returns the orders the account participates in, newest first.
func (s *Service) ListForAccount(ctx context.Context, accountID string) ([]Order, error) {
	var result []Order
	err := s.db.WithContext(ctx).
		Where("seller_id = ? OR buyer_id = ?", accountID, accountID).
		Order("created_at DESC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus advances the order lifecycle. The seller drives accept and
// deliver; either party may cancel while cancellation is still allowed.
// Delivery credits the listing's sales counter.
func (s *Service) UpdateStatus(ctx context.Context, callerID, orderID string, target Status) (Order, error) {
	order, err := s.Get(ctx, callerID, orderID)
	if err != nil {
		return Order{}, err
	}

	if target != StatusCancelled && order.SellerID != callerID {
		return Order{}, apperr.Forbidden("Only the seller may update this order")
	}
	if !canTransition(order.Status, target) {
		return Order{}, apperr.Validation("Order cannot change from " + string(order.Status) + " to " + string(target))
	}

	if err := s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", orderID, order.Status).
		Update("status", target).Error; err != nil {
		return Order{}, err
	}

	if target == StatusDelivered && s.sales != nil {
		if err := s.sales.IncrementSales(ctx, order.ListingKind, order.ListingID); err != nil {
			s.logger.Warn("sales counter increment failed",
				zap.String("listing_id", order.ListingID),
				zap.Error(err))
		}
	}

	order.Status = target
	return order, nil
}
