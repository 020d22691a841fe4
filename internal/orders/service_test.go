package orders

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
	if err := db.AutoMigrate(&Order{}); err != nil {
		t.Fatalf("failed to migrate order schema: %v", err)
	}
	return db
}

type fakeListingReader struct {
	luggage    map[string]listings.Listing
	containers map[string]listings.ContainerListing
}

func (f *fakeListingReader) GetListing(_ context.Context, id string) (listings.Listing, error) {
	listing, ok := f.luggage[id]
	if !ok {
		return listings.Listing{}, apperr.NotFound("Listing not found")
	}
	return listing, nil
}

func (f *fakeListingReader) GetContainerListing(_ context.Context, id string) (listings.ContainerListing, error) {
	listing, ok := f.containers[id]
	if !ok {
		return listings.ContainerListing{}, apperr.NotFound("Listing not found")
	}
	return listing, nil
}

type fakeSalesCounter struct {
	credited []string
	err      error
}

func (f *fakeSalesCounter) IncrementSales(_ context.Context, _ listings.Kind, listingID string) error {
	f.credited = append(f.credited, listingID)
	return f.err
}

func newTestService(t *testing.T, db *gorm.DB, reader ListingReader, sales SalesCounter) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Database: db,
		Listings: reader,
		Sales:    sales,
		Clock: func() time.Time {
			return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func readerWithListing(id, ownerID string, pricePerKg float64, completed bool) *fakeListingReader {
	return &fakeListingReader{
		luggage: map[string]listings.Listing{
			id: {ID: id, OwnerID: ownerID, PricePerKg: pricePerKg, Completed: completed},
		},
		containers: map[string]listings.ContainerListing{},
	}
}

func TestCreateSnapshotsListingPrice(t *testing.T) {
	reader := readerWithListing("listing-1", "seller-1", 8.5, false)
	service := newTestService(t, openTestDB(t), reader, nil)
	ctx := context.Background()

	order, err := service.Create(ctx, CreateInput{
		BuyerID:     "buyer-1",
		ListingID:   "listing-1",
		ListingKind: listings.KindLuggage,
		QuantityKg:  10,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if order.SellerID != "seller-1" || order.Status != StatusPending {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.UnitPrice != 8.5 || order.TotalPrice != 85 {
		t.Fatalf("unexpected price snapshot: unit=%v total=%v", order.UnitPrice, order.TotalPrice)
	}

	// A later listing edit must not change agreed terms.
	listing := reader.luggage["listing-1"]
	listing.PricePerKg = 20
	reader.luggage["listing-1"] = listing

	reloaded, err := service.Get(ctx, "buyer-1", order.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.UnitPrice != 8.5 {
		t.Fatalf("snapshot changed after listing edit: %v", reloaded.UnitPrice)
	}
}

func TestCreateRejections(t *testing.T) {
	reader := readerWithListing("listing-1", "seller-1", 8.5, false)
	reader.luggage["done"] = listings.Listing{ID: "done", OwnerID: "seller-1", PricePerKg: 5, Completed: true}
	service := newTestService(t, openTestDB(t), reader, nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateInput
		kind  apperr.Kind
	}{
		{
			name:  "zero quantity",
			input: CreateInput{BuyerID: "buyer-1", ListingID: "listing-1", ListingKind: listings.KindLuggage},
			kind:  apperr.KindValidation,
		},
		{
			name:  "own listing",
			input: CreateInput{BuyerID: "seller-1", ListingID: "listing-1", ListingKind: listings.KindLuggage, QuantityKg: 5},
			kind:  apperr.KindValidation,
		},
		{
			name:  "completed listing",
			input: CreateInput{BuyerID: "buyer-1", ListingID: "done", ListingKind: listings.KindLuggage, QuantityKg: 5},
			kind:  apperr.KindValidation,
		},
		{
			name:  "missing listing",
			input: CreateInput{BuyerID: "buyer-1", ListingID: "nope", ListingKind: listings.KindLuggage, QuantityKg: 5},
			kind:  apperr.KindNotFound,
		},
	}
	for _, testCase := range cases {
		if _, err := service.Create(ctx, testCase.input); apperr.KindOf(err) != testCase.kind {
			t.Fatalf("%s: expected %v, got %v", testCase.name, testCase.kind, err)
		}
	}
}

func TestUpdateStatusLifecycle(t *testing.T) {
	reader := readerWithListing("listing-1", "seller-1", 8.5, false)
	sales := &fakeSalesCounter{}
	service := newTestService(t, openTestDB(t), reader, sales)
	ctx := context.Background()

	order, err := service.Create(ctx, CreateInput{
		BuyerID: "buyer-1", ListingID: "listing-1", ListingKind: listings.KindLuggage, QuantityKg: 10,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Only the seller drives acceptance and delivery.
	if _, err := service.UpdateStatus(ctx, "buyer-1", order.ID, StatusAccepted); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for buyer acceptance, got %v", err)
	}
	if _, err := service.UpdateStatus(ctx, "seller-1", order.ID, StatusDelivered); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error skipping acceptance, got %v", err)
	}

	accepted, err := service.UpdateStatus(ctx, "seller-1", order.ID, StatusAccepted)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Fatalf("unexpected status: %q", accepted.Status)
	}

	delivered, err := service.UpdateStatus(ctx, "seller-1", order.ID, StatusDelivered)
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if delivered.Status != StatusDelivered {
		t.Fatalf("unexpected status: %q", delivered.Status)
	}
	if len(sales.credited) != 1 || sales.credited[0] != "listing-1" {
		t.Fatalf("expected one sales credit, got %v", sales.credited)
	}

	// Delivered is terminal.
	if _, err := service.UpdateStatus(ctx, "seller-1", order.ID, StatusCancelled); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected terminal state to reject changes, got %v", err)
	}
}

func TestBuyerMayCancelPendingOrder(t *testing.T) {
	reader := readerWithListing("listing-1", "seller-1", 8.5, false)
	service := newTestService(t, openTestDB(t), reader, nil)
	ctx := context.Background()

	order, err := service.Create(ctx, CreateInput{
		BuyerID: "buyer-1", ListingID: "listing-1", ListingKind: listings.KindLuggage, QuantityKg: 10,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cancelled, err := service.UpdateStatus(ctx, "buyer-1", order.ID, StatusCancelled)
	if err != nil {
		t.Fatalf("buyer cancel failed: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("unexpected status: %q", cancelled.Status)
	}
	if _, err := service.UpdateStatus(ctx, "seller-1", order.ID, StatusAccepted); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected cancelled order to be terminal, got %v", err)
	}
}

func TestDeliverySurvivesSalesCounterFailure(t *testing.T) {
	reader := readerWithListing("listing-1", "seller-1", 8.5, false)
	sales := &fakeSalesCounter{err: errors.New("listings unavailable")}
	service := newTestService(t, openTestDB(t), reader, sales)
	ctx := context.Background()

	order, err := service.Create(ctx, CreateInput{
		BuyerID: "buyer-1", ListingID: "listing-1", ListingKind: listings.KindLuggage, QuantityKg: 10,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := service.UpdateStatus(ctx, "seller-1", order.ID, StatusAccepted); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := service.UpdateStatus(ctx, "seller-1", order.ID, StatusDelivered); err != nil {
		t.Fatalf("delivery must tolerate counter failure: %v", err)
	}
}

func TestGetRestrictedToParties(t *testing.T) {
	reader := readerWithListing("listing-1", "seller-1", 8.5, false)
	service := newTestService(t, openTestDB(t), reader, nil)
	ctx := context.Background()

	order, err := service.Create(ctx, CreateInput{
		BuyerID: "buyer-1", ListingID: "listing-1", ListingKind: listings.KindLuggage, QuantityKg: 10,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := service.Get(ctx, "stranger", order.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for outsider, got %v", err)
	}
	if _, err := service.Get(ctx, "seller-1", order.ID); err != nil {
		t.Fatalf("seller access failed: %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus("  Accepted "); !ok || status != StatusAccepted {
		t.Fatalf("ParseStatus failed: %v %v", status, ok)
	}
	if _, ok := ParseStatus("shipped"); ok {
		t.Fatalf("expected unknown status to be rejected")
	}
}
