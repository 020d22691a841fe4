package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stowagehq/stowage/backend/internal/apperr"
	"github.com/stowagehq/stowage/backend/internal/listings"
)

var errMissingDatabase = errors.New("reviews: database handle is required")

// SellerRatingSink pushes a rating increment into the seller's aggregate.
// Satisfied by the accounts service.
type SellerRatingSink interface {
	AddRating(ctx context.Context, sellerID string, stars int) error
}

// ListingRatingSink pushes a rating increment into the listing's aggregate.
// Satisfied by the listings service.
type ListingRatingSink interface {
	AddRating(ctx context.Context, kind listings.Kind, listingID string, stars int) error
}

// ServiceConfig describes the dependencies required for review management.
type ServiceConfig struct {
	Database       *gorm.DB
	SellerRatings  SellerRatingSink
	ListingRatings ListingRatingSink
	Clock          func() time.Time
	Logger         *zap.Logger
}

// Service creates and lists seller reviews.
type Service struct {
	db             *gorm.DB
	sellerRatings  SellerRatingSink
	listingRatings ListingRatingSink
	now            func() time.Time
	logger         *zap.Logger
}

// NewService constructs the review service.
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
		db:             cfg.Database,
		sellerRatings:  cfg.SellerRatings,
		listingRatings: cfg.ListingRatings,
		now:            clock,
		logger:         logger,
	}, nil
}

// CreateInput carries a new review.
type CreateInput struct {
	ReviewerID  string
	SellerID    string
	ListingID   string
	ListingKind listings.Kind
	Stars       int
	Comment     string
}

// Create stores a review and pushes its stars into the seller's and listing's
// aggregates. A reviewer gets exactly one review per seller.
func (s *Service) Create(ctx context.Context, input CreateInput) (Review, error) {
	if input.Stars < 1 || input.Stars > 5 {
		return Review{}, apperr.Validation("Rating must be between 1 and 5")
	}
	if input.ReviewerID == input.SellerID {
		return Review{}, apperr.Validation("You cannot review yourself")
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&Review{}).
		Where("seller_id = ? AND reviewer_id = ?", input.SellerID, input.ReviewerID).
		Count(&count).Error
	if err != nil {
		return Review{}, err
	}
	if count > 0 {
		return Review{}, apperr.Conflict("You have already reviewed this seller")
	}

	review := Review{
		ID:          uuid.NewString(),
		SellerID:    input.SellerID,
		ReviewerID:  input.ReviewerID,
		ListingID:   input.ListingID,
		ListingKind: input.ListingKind,
		Stars:       input.Stars,
		Comment:     strings.TrimSpace(input.Comment),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&review).Error; err != nil {
		if isDuplicateKey(err) {
			return Review{}, apperr.Conflict("You have already reviewed this seller")
		}
		return Review{}, err
	}

	if s.sellerRatings != nil {
		if err := s.sellerRatings.AddRating(ctx, input.SellerID, input.Stars); err != nil {
			s.logger.Warn("seller rating increment failed",
				zap.String("seller_id", input.SellerID),
				zap.Error(err))
		}
	}
	if s.listingRatings != nil && input.ListingID != "" {
		if err := s.listingRatings.AddRating(ctx, input.ListingKind, input.ListingID, input.Stars); err != nil {
			s.logger.Warn("listing rating increment failed",
				zap.String("listing_id", input.ListingID),
				zap.Error(err))
		}
	}
	return review, nil
}

// ListBySeller returns a seller's reviews, newest first.
func (s *Service) ListBySeller(ctx context.Context, sellerID string) ([]Review, error) {
	var result []Review
	err := s.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
