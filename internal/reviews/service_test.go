package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/stowagehq/stowage/backend/internal/apperr"
	"github.com/stowagehq/stowage/backend/internal/listings"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Review{}); err != nil {
		t.Fatalf("failed to migrate review schema: %v", err)
	}
	return db
}

type fakeSellerRatingSink struct {
	stars []int
	err   error
}

func (f *fakeSellerRatingSink) AddRating(_ context.Context, _ string, stars int) error {
	f.stars = append(f.stars, stars)
	return f.err
}

type fakeListingRatingSink struct {
	listingIDs []string
	err        error
}

func (f *fakeListingRatingSink) AddRating(_ context.Context, _ listings.Kind, listingID string, _ int) error {
	f.listingIDs = append(f.listingIDs, listingID)
	return f.err
}

func newTestService(t *testing.T, db *gorm.DB, seller SellerRatingSink, listing ListingRatingSink) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Database:       db,
		SellerRatings:  seller,
		ListingRatings: listing,
		Clock: func() time.Time {
			return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func TestCreatePushesRatingsToBothAggregates(t *testing.T) {
	sellerSink := &fakeSellerRatingSink{}
	listingSink := &fakeListingRatingSink{}
	service := newTestService(t, openTestDB(t), sellerSink, listingSink)
	ctx := context.Background()

	review, err := service.Create(ctx, CreateInput{
		ReviewerID:  "buyer-1",
		SellerID:    "seller-1",
		ListingID:   "listing-1",
		ListingKind: listings.KindLuggage,
		Stars:       4,
		Comment:     "  Quick and careful.  ",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if review.Comment != "Quick and careful." {
		t.Fatalf("expected trimmed comment, got %q", review.Comment)
	}
	if len(sellerSink.stars) != 1 || sellerSink.stars[0] != 4 {
		t.Fatalf("seller aggregate not updated: %v", sellerSink.stars)
	}
	if len(listingSink.listingIDs) != 1 || listingSink.listingIDs[0] != "listing-1" {
		t.Fatalf("listing aggregate not updated: %v", listingSink.listingIDs)
	}
}

func TestCreateSkipsListingAggregateWithoutListing(t *testing.T) {
	listingSink := &fakeListingRatingSink{}
	service := newTestService(t, openTestDB(t), &fakeSellerRatingSink{}, listingSink)
	ctx := context.Background()

	if _, err := service.Create(ctx, CreateInput{
		ReviewerID: "buyer-1",
		SellerID:   "seller-1",
		Stars:      5,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(listingSink.listingIDs) != 0 {
		t.Fatalf("listing aggregate must not be touched without a listing id: %v", listingSink.listingIDs)
	}
}

func TestCreateRejectsSecondReviewForSameSeller(t *testing.T) {
	service := newTestService(t, openTestDB(t), nil, nil)
	ctx := context.Background()

	first := CreateInput{ReviewerID: "buyer-1", SellerID: "seller-1", Stars: 5}
	if _, err := service.Create(ctx, first); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := service.Create(ctx, first); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for repeated pair, got %v", err)
	}

	// A different reviewer for the same seller is fine.
	if _, err := service.Create(ctx, CreateInput{ReviewerID: "buyer-2", SellerID: "seller-1", Stars: 3}); err != nil {
		t.Fatalf("second reviewer failed: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	service := newTestService(t, openTestDB(t), nil, nil)
	ctx := context.Background()

	if _, err := service.Create(ctx, CreateInput{
		ReviewerID: "buyer-1", SellerID: "seller-1", Stars: 6,
	}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for out-of-range stars, got %v", err)
	}
	if _, err := service.Create(ctx, CreateInput{
		ReviewerID: "seller-1", SellerID: "seller-1", Stars: 5,
	}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for self review, got %v", err)
	}
}

func TestCreateSurvivesAggregateFailures(t *testing.T) {
	sellerSink := &fakeSellerRatingSink{err: errors.New("accounts unavailable")}
	listingSink := &fakeListingRatingSink{err: errors.New("listings unavailable")}
	service := newTestService(t, openTestDB(t), sellerSink, listingSink)
	ctx := context.Background()

	if _, err := service.Create(ctx, CreateInput{
		ReviewerID:  "buyer-1",
		SellerID:    "seller-1",
		ListingID:   "listing-1",
		ListingKind: listings.KindLuggage,
		Stars:       4,
	}); err != nil {
		t.Fatalf("review creation must tolerate aggregate failures: %v", err)
	}
}

func TestListBySellerNewestFirst(t *testing.T) {
	db := openTestDB(t)
	service := newTestService(t, db, nil, nil)
	ctx := context.Background()

	older := Review{
		ID: "r-1", SellerID: "seller-1", ReviewerID: "buyer-1", Stars: 5,
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := Review{
		ID: "r-2", SellerID: "seller-1", ReviewerID: "buyer-2", Stars: 3,
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&older).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := db.Create(&newer).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	result, err := service.ListBySeller(ctx, "seller-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(result) != 2 || result[0].ID != "r-2" || result[1].ID != "r-1" {
		t.Fatalf("unexpected order: %+v", result)
	}
}
