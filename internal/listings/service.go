package listings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stowagehq/stowage/backend/internal/apperr"
)

var errMissingDatabase = errors.New("listings: database handle is required")

// TripCounter credits a seller with a completed trip. Satisfied by the
// accounts service.
type TripCounter interface {
	IncrementTrips(ctx context.Context, accountID string) error
}

// ServiceConfig describes the dependencies required for listing management.
type ServiceConfig struct {
	Database *gorm.DB
	Trips    TripCounter
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service performs ownership-checked CRUD over both listing flavors.
type Service struct {
	db     *gorm.DB
	trips  TripCounter
	now    func() time.Time
	logger *zap.Logger
}

// NewService constructs the listing service.
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
		db:     cfg.Database,
		trips:  cfg.Trips,
		now:    clock,
		logger: logger,
	}, nil
}

// CreateListingInput carries a new luggage listing.
type CreateListingInput struct {
	OwnerID        string
	Origin         string
	Destination    string
	CapacityKg     float64
	PricePerKg     float64
	DeliveryDays   int
	ExpirationDays int
}

// CreateListing validates and stores a luggage listing.
func (s *Service) CreateListing(ctx context.Context, input CreateListingInput) (Listing, error) {
	if input.Origin == "" || input.Destination == "" {
		return Listing{}, apperr.Validation("Origin and destination are required")
	}
	if input.CapacityKg <= 0 || input.PricePerKg <= 0 {
		return Listing{}, apperr.Validation("Capacity and price must be positive")
	}
	if input.DeliveryDays <= 0 || input.ExpirationDays <= 0 {
		return Listing{}, apperr.Validation("Delivery and expiration days must be positive")
	}

	listing := Listing{
		ID:             uuid.NewString(),
		OwnerID:        input.OwnerID,
		Origin:         input.Origin,
		Destination:    input.Destination,
		CapacityKg:     input.CapacityKg,
		PricePerKg:     input.PricePerKg,
		DeliveryDays:   input.DeliveryDays,
		ExpirationDays: input.ExpirationDays,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&listing).Error; err != nil {
		return Listing{}, err
	}
	return listing, nil
}

// CreateContainerInput carries a new container listing.
type CreateContainerInput struct {
	OwnerID        string
	Location       string
	Destination    string
	ContainerType  string
	TaxClearance   string
	CapacityKg     float64
	PricePerKg     float64
	DepartureAt    time.Time
	ArrivalAt      time.Time
	ExpirationDays int
}

// CreateContainerListing validates and stores a container listing. Arrival
// must fall strictly after departure.
func (s *Service) CreateContainerListing(ctx context.Context, input CreateContainerInput) (ContainerListing, error) {
	if input.Location == "" || input.Destination == "" {
		return ContainerListing{}, apperr.Validation("Location and destination are required")
	}
	containerType, ok := ParseContainerType(input.ContainerType)
	if !ok {
		return ContainerListing{}, apperr.Validation("Unknown container type")
	}
	clearance, ok := ParseTaxClearanceMode(input.TaxClearance)
	if !ok {
		return ContainerListing{}, apperr.Validation("Unknown tax clearance mode")
	}
	if input.CapacityKg <= 0 || input.PricePerKg <= 0 {
		return ContainerListing{}, apperr.Validation("Capacity and price must be positive")
	}
	if input.ExpirationDays <= 0 {
		return ContainerListing{}, apperr.Validation("Expiration days must be positive")
	}
	if !input.ArrivalAt.After(input.DepartureAt) {
		return ContainerListing{}, apperr.Validation("Arrival must be after departure")
	}

	listing := ContainerListing{
		ID:             uuid.NewString(),
		OwnerID:        input.OwnerID,
		Location:       input.Location,
		Destination:    input.Destination,
		ContainerType:  containerType,
		TaxClearance:   clearance,
		CapacityKg:     input.CapacityKg,
		PricePerKg:     input.PricePerKg,
		DepartureAt:    input.DepartureAt,
		ArrivalAt:      input.ArrivalAt,
		ExpirationDays: input.ExpirationDays,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&listing).Error; err != nil {
		return ContainerListing{}, err
	}
	return listing, nil
}

// GetListing loads one luggage listing.
func (s *Service) GetListing(ctx context.Context, id string) (Listing, error) {
	var listing Listing
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Listing{}, apperr.NotFound("Listing not found")
	}
	if err != nil {
		return Listing{}, err
	}
	return listing, nil
}

// GetContainerListing loads one container listing.
func (s *Service) GetContainerListing(ctx context.Context, id string) (ContainerListing, error) {
	var listing ContainerListing
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ContainerListing{}, apperr.NotFound("Listing not found")
	}
	if err != nil {
		return ContainerListing{}, err
	}
	return listing, nil
}

// ListListings returns recent luggage listings, optionally filtered by owner.
func (s *Service) ListListings(ctx context.Context, ownerID string) ([]Listing, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}
	var result []Listing
	if err := query.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// ListContainerListings returns recent container listings, optionally filtered by owner.
func (s *Service) ListContainerListings(ctx context.Context, ownerID string) ([]ContainerListing, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}
	var result []ContainerListing
	if err := query.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateListingInput carries a partial edit. Nil pointers mean "unchanged".
type UpdateListingInput struct {
	Origin         *string
	Destination    *string
	CapacityKg     *float64
	PricePerKg     *float64
	DeliveryDays   *int
	ExpirationDays *int
}

// UpdateListing applies a partial edit after the ownership check.
func (s *Service) UpdateListing(ctx context.Context, callerID, listingID string, input UpdateListingInput) (Listing, error) {
	listing, err := s.GetListing(ctx, listingID)
	if err != nil {
		return Listing{}, err
	}
	if listing.OwnerID != callerID {
		return Listing{}, apperr.Forbidden("Only the listing owner may modify it")
	}

	updates := map[string]interface{}{}
	if input.Origin != nil && *input.Origin != "" {
		updates["origin"] = *input.Origin
	}
	if input.Destination != nil && *input.Destination != "" {
		updates["destination"] = *input.Destination
	}
	if input.CapacityKg != nil {
		if *input.CapacityKg <= 0 {
			return Listing{}, apperr.Validation("Capacity must be positive")
		}
		updates["capacity_kg"] = *input.CapacityKg
	}
	if input.PricePerKg != nil {
		if *input.PricePerKg <= 0 {
			return Listing{}, apperr.Validation("Price must be positive")
		}
		updates["price_per_kg"] = *input.PricePerKg
	}
	if input.DeliveryDays != nil {
		if *input.DeliveryDays <= 0 {
			return Listing{}, apperr.Validation("Delivery days must be positive")
		}
		updates["delivery_days"] = *input.DeliveryDays
	}
	if input.ExpirationDays != nil {
		if *input.ExpirationDays <= 0 {
			return Listing{}, apperr.Validation("Expiration days must be positive")
		}
		updates["expiration_days"] = *input.ExpirationDays
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&Listing{}).Where("id = ?", listingID).Updates(updates).Error; err != nil {
			return Listing{}, err
		}
	}
	return s.GetListing(ctx, listingID)
}

// DeleteListing removes a luggage listing after the ownership check.
func (s *Service) DeleteListing(ctx context.Context, callerID, listingID string) error {
	listing, err := s.GetListing(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.OwnerID != callerID {
		return apperr.Forbidden("Only the listing owner may delete it")
	}
	if err := s.db.WithContext(ctx).Where("id = ?", listingID).Delete(&Listing{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("listing_id = ? AND listing_kind = ?", listingID, KindLuggage).
		Delete(&Interest{}).Error
}

// DeleteContainerListing removes a container listing after the ownership check.
func (s *Service) DeleteContainerListing(ctx context.Context, callerID, listingID string) error {
	listing, err := s.GetContainerListing(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.OwnerID != callerID {
		return apperr.Forbidden("Only the listing owner may delete it")
	}
	if err := s.db.WithContext(ctx).Where("id = ?", listingID).Delete(&ContainerListing{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("listing_id = ? AND listing_kind = ?", listingID, KindContainer).
		Delete(&Interest{}).Error
}

// InterestResult reports the caller's membership and the new set size.
type InterestResult struct {
	Interested bool
	Count      int64
}

// ToggleInterest flips the caller's membership in the listing's interested-set.
// Add and remove are keyed single-row writes, so a repeated call restores the
// prior state.
func (s *Service) ToggleInterest(ctx context.Context, callerID string, kind Kind, listingID string) (InterestResult, error) {
	header, err := s.loadHeader(ctx, kind, listingID)
	if err != nil {
		return InterestResult{}, err
	}
	if header.OwnerID == callerID {
		return InterestResult{}, apperr.Validation("You cannot mark interest in your own listing")
	}

	removal := s.db.WithContext(ctx).
		Where("listing_id = ? AND listing_kind = ? AND account_id = ?", listingID, kind, callerID).
		Delete(&Interest{})
	if removal.Error != nil {
		return InterestResult{}, removal.Error
	}

	interested := false
	if removal.RowsAffected == 0 {
		record := Interest{ListingID: listingID, ListingKind: kind, AccountID: callerID}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return InterestResult{}, err
		}
		interested = true
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Interest{}).
		Where("listing_id = ? AND listing_kind = ?", listingID, kind).
		Count(&count).Error; err != nil {
		return InterestResult{}, err
	}
	return InterestResult{Interested: interested, Count: count}, nil
}

// InterestedAccountIDs returns the ids currently in a listing's interested-set.
func (s *Service) InterestedAccountIDs(ctx context.Context, kind Kind, listingID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Interest{}).
		Where("listing_id = ? AND listing_kind = ?", listingID, kind).
		Order("created_at ASC").
		Pluck("account_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Complete marks a listing done. One-way: requires the owner, requires the
// expiration horizon to have passed, fails on a second attempt, and credits
// the owner with a completed trip.
func (s *Service) Complete(ctx context.Context, callerID string, kind Kind, listingID string) error {
	header, err := s.loadHeader(ctx, kind, listingID)
	if err != nil {
		return err
	}
	if header.OwnerID != callerID {
		return apperr.Forbidden("Only the listing owner may complete it")
	}
	if header.Completed {
		return apperr.Validation("Listing is already completed")
	}
	if s.now().Before(ExpiresAt(header.CreatedAt, header.ExpirationDays)) {
		return apperr.Validation("Listing has not reached its expiration date yet")
	}

	if err := s.db.WithContext(ctx).Table(tableFor(kind)).
		Where("id = ?", listingID).
		Update("completed", true).Error; err != nil {
		return err
	}

	if s.trips != nil {
		if err := s.trips.IncrementTrips(ctx, header.OwnerID); err != nil {
			s.logger.Warn("trip counter increment failed",
				zap.String("owner_id", header.OwnerID),
				zap.Error(err))
		}
	}
	return nil
}

// AddRating pushes one review's stars into the listing's aggregate.
func (s *Service) AddRating(ctx context.Context, kind Kind, listingID string, stars int) error {
	if stars < 1 || stars > 5 {
		return apperr.Validation("Rating must be between 1 and 5")
	}
	result := s.db.WithContext(ctx).Table(tableFor(kind)).
		Where("id = ?", listingID).
		UpdateColumns(map[string]interface{}{
			"rating_total": gorm.Expr("rating_total + ?", stars),
			"rating_count": gorm.Expr("rating_count + ?", 1),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("Listing not found")
	}
	return nil
}

// IncrementSales bumps the sales counter after an order is delivered.
func (s *Service) IncrementSales(ctx context.Context, kind Kind, listingID string) error {
	result := s.db.WithContext(ctx).Table(tableFor(kind)).
		Where("id = ?", listingID).
		UpdateColumn("sales", gorm.Expr("sales + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("Listing not found")
	}
	return nil
}

// listingHeader is the slice of either listing table needed for ownership and
// completion checks.
type listingHeader struct {
	OwnerID        string
	Completed      bool
	ExpirationDays int
	CreatedAt      time.Time
}

func (s *Service) loadHeader(ctx context.Context, kind Kind, listingID string) (listingHeader, error) {
	var header listingHeader
	err := s.db.WithContext(ctx).Table(tableFor(kind)).
		Select("owner_id", "completed", "expiration_days", "created_at").
		Where("id = ?", listingID).
		Take(&header).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return listingHeader{}, apperr.NotFound("Listing not found")
	}
	if err != nil {
		return listingHeader{}, err
	}
	return header, nil
}

func tableFor(kind Kind) string {
	if kind == KindContainer {
		return ContainerListing{}.TableName()
	}
	return Listing{}.TableName()
}
