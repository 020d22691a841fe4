package accounts

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
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Account{}); err != nil {
		t.Fatalf("failed to migrate account schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, admin *fakeIdentityAdmin, media MediaStore) *Service {
	t.Helper()
	cfg := ServiceConfig{
		Database:         db,
		Media:            media,
		IdentityCDNHosts: []string{"cdn.identity.example"},
		Clock: func() time.Time {
			return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		},
	}
	if admin != nil {
		cfg.IdentityAdmin = admin
	}
	service, err := NewService(cfg)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

type fakeIdentityAdmin struct {
	deleted []string
	err     error
}

func (f *fakeIdentityAdmin) DeleteIdentity(_ context.Context, subject string) error {
	f.deleted = append(f.deleted, subject)
	return f.err
}

type fakeMediaStore struct {
	hostedURL string
	err       error
	calls     int
}

func (f *fakeMediaStore) CopyFromURL(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.hostedURL, nil
}

func TestReconcileFindOrCreateIsIdempotent(t *testing.T) {
	service := newTestService(t, openTestDB(t), nil, nil)
	ctx := context.Background()

	first, err := service.Reconcile(ctx, ReconcileInput{ExternalID: "ext-100", Email: "carol@example.com"})
	if err != nil {
		t.Fatalf("first reconcile failed: %v", err)
	}
	if !first.IsNew {
		t.Fatalf("expected first reconcile to create the account")
	}

	second, err := service.Reconcile(ctx, ReconcileInput{ExternalID: "ext-100", Email: "carol@example.com"})
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}
	if second.IsNew {
		t.Fatalf("expected second reconcile to reuse the account")
	}
	if first.Account.ID != second.Account.ID {
		t.Fatalf("account id changed across reconciles: %q vs %q", first.Account.ID, second.Account.ID)
	}
}

func TestReconcileSynthesizesPlaceholderHandle(t *testing.T) {
	service := newTestService(t, openTestDB(t), nil, nil)
	ctx := context.Background()

	result, err := service.Reconcile(ctx, ReconcileInput{ExternalID: "ext1", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Account.Handle != "a_ext1" {
		t.Fatalf("unexpected synthesized handle: %q", result.Account.Handle)
	}
	if result.Account.Country != CountryNotSpecified {
		t.Fatalf("unexpected country: %q", result.Account.Country)
	}
	if result.ProfileComplete {
		t.Fatalf("auto-created account must not be profile-complete")
	}

	completed, err := service.Reconcile(ctx, ReconcileInput{
		ExternalID: "ext1",
		Email:      "a@x.com",
		Handle:     "alice",
		Country:    "Kenya",
	})
	if err != nil {
		t.Fatalf("profile completion reconcile failed: %v", err)
	}
	if completed.Account.ID != result.Account.ID {
		t.Fatalf("expected the same account, got %q vs %q", completed.Account.ID, result.Account.ID)
	}
	if completed.Account.Handle != "alice" {
		t.Fatalf("unexpected handle after completion: %q", completed.Account.Handle)
	}
	if !completed.ProfileComplete {
		t.Fatalf("expected profile to be complete after handle and country were set")
	}
}

func TestReconcileProbesForFreeSynthesizedHandle(t *testing.T) {
	db := openTestDB(t)
	service := newTestService(t, db, nil, nil)
	ctx := context.Background()

	taken := Account{ID: "acc-1", Handle: "bob_extbob", Email: "other@example.com"}
	if err := db.Create(&taken).Error; err != nil {
		t.Fatalf("failed to seed colliding handle: %v", err)
	}

	result, err := service.Reconcile(ctx, ReconcileInput{ExternalID: "extbob999", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Account.Handle != "bob_extbob1" {
		t.Fatalf("expected numeric suffix probing, got %q", result.Account.Handle)
	}
}

func TestReconcileNormalizesProvidedHandle(t *testing.T) {
	service := newTestService(t, openTestDB(t), nil, nil)
	ctx := context.Background()

	result, err := service.Reconcile(ctx, ReconcileInput{
		ExternalID: "ext-norm",
		Email:      "dora@example.com",
		Handle:     "  DoRa  ",
		Country:    "Ghana",
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Account.Handle != "dora" {
		t.Fatalf("expected trimmed lower-cased handle, got %q", result.Account.Handle)
	}
}

func TestReconcileRejectsTakenHandleOnUpdate(t *testing.T) {
	service := newTestService(t, openTestDB(t), nil, nil)
	ctx := context.Background()

	if _, err := service.Reconcile(ctx, ReconcileInput{
		ExternalID: "ext-a", Email: "a@example.com", Handle: "alice", Country: "Kenya",
	}); err != nil {
		t.Fatalf("seed reconcile failed: %v", err)
	}
	second, err := service.Reconcile(ctx, ReconcileInput{ExternalID: "ext-b", Email: "b@example.com"})
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}

	_, err = service.Reconcile(ctx, ReconcileInput{
		ExternalID: "ext-b",
		Email:      "b@example.com",
		Handle:     "Alice",
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for taken handle, got %v", err)
	}

	unchanged, err := service.GetByID(ctx, second.Account.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if unchanged.Handle != second.Account.Handle {
		t.Fatalf("handle changed despite conflict: %q", unchanged.Handle)
	}
}

func TestReconcileDuplicateCreateRollsBackIdentity(t *testing.T) {
	admin := &fakeIdentityAdmin{}
	service := newTestService(t, openTestDB(t), admin, nil)
	ctx := context.Background()

	if _, err := service.Reconcile(ctx, ReconcileInput{
		ExternalID: "ext-first", Email: "taken@example.com", Handle: "winner", Country: "Kenya",
	}); err != nil {
		t.Fatalf("seed reconcile failed: %v", err)
	}

	_, err := service.Reconcile(ctx, ReconcileInput{
		ExternalID: "ext-second", Email: "loser@example.com", Handle: "winner", Country: "Kenya",
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict from duplicate create, got %v", err)
	}
	if len(admin.deleted) != 1 || admin.deleted[0] != "ext-second" {
		t.Fatalf("expected identity rollback for ext-second, got %v", admin.deleted)
	}

	if _, err := service.GetByExternalID(ctx, "ext-second"); apperr.KindOf(err) != apperr.KindProfileNotFound {
		t.Fatalf("expected no local account for rolled-back identity, got %v", err)
	}
}

func TestReconcileToleratesRollbackFailure(t *testing.T) {
	admin := &fakeIdentityAdmin{err: errors.New("provider unavailable")}
	service := newTestService(t, openTestDB(t), admin, nil)
	ctx := context.Background()

	if _, err := service.Reconcile(ctx, ReconcileInput{
		ExternalID: "ext-one", Email: "dup@example.com", Handle: "dup", Country: "Kenya",
	}); err != nil {
		t.Fatalf("seed reconcile failed: %v", err)
	}

	_, err := service.Reconcile(ctx, ReconcileInput{
		ExternalID: "ext-two", Email: "dup@example.com", Handle: "elsewhere", Country: "Kenya",
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict despite rollback failure, got %v", err)
	}
}

func TestReconcileRehostsProviderPhotoBestEffort(t *testing.T) {
	media := &fakeMediaStore{hostedURL: "https://media.stowage.example/profiles/p1.jpg"}
	service := newTestService(t, openTestDB(t), nil, media)
	ctx := context.Background()

	result, err := service.Reconcile(ctx, ReconcileInput{
		ExternalID: "ext-photo",
		Email:      "photo@example.com",
		PhotoURL:   "https://cdn.identity.example/avatar.jpg",
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Account.PhotoURL != media.hostedURL {
		t.Fatalf("expected re-hosted photo url, got %q", result.Account.PhotoURL)
	}
}

func TestReconcileKeepsOriginalPhotoWhenRehostFails(t *testing.T) {
	media := &fakeMediaStore{err: errors.New("bucket unavailable")}
	service := newTestService(t, openTestDB(t), nil, media)
	ctx := context.Background()

	original := "https://cdn.identity.example/avatar.jpg"
	result, err := service.Reconcile(ctx, ReconcileInput{
		ExternalID: "ext-photo2",
		Email:      "photo2@example.com",
		PhotoURL:   original,
	})
	if err != nil {
		t.Fatalf("reconcile must not fail on photo copy errors: %v", err)
	}
	if result.Account.PhotoURL != original {
		t.Fatalf("expected fallback to original url, got %q", result.Account.PhotoURL)
	}
}

func TestReconcileSkipsRehostForNonProviderHosts(t *testing.T) {
	media := &fakeMediaStore{hostedURL: "https://media.stowage.example/profiles/p2.jpg"}
	service := newTestService(t, openTestDB(t), nil, media)
	ctx := context.Background()

	original := "https://elsewhere.example/avatar.jpg"
	result, err := service.Reconcile(ctx, ReconcileInput{
		ExternalID: "ext-photo3",
		Email:      "photo3@example.com",
		PhotoURL:   original,
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if media.calls != 0 {
		t.Fatalf("expected no copy attempt for non-provider host")
	}
	if result.Account.PhotoURL != original {
		t.Fatalf("unexpected photo url: %q", result.Account.PhotoURL)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	service := newTestService(t, openTestDB(t), nil, nil)
	ctx := context.Background()

	account, err := service.Register(ctx, RegisterInput{
		Handle:   "Trader",
		Email:    "trader@example.com",
		Password: "opensesame",
		Country:  "Nigeria",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if account.Handle != "trader" {
		t.Fatalf("expected normalized handle, got %q", account.Handle)
	}

	loggedIn, err := service.Login(ctx, "trader", "opensesame")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if loggedIn.ID != account.ID {
		t.Fatalf("login resolved wrong account")
	}

	if _, err := service.Login(ctx, "trader", "wrong"); apperr.KindOf(err) != apperr.KindAuth {
		t.Fatalf("expected auth error for bad password, got %v", err)
	}

	if _, err := service.Register(ctx, RegisterInput{
		Handle: "trader", Email: "other@example.com", Password: "pw",
	}); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for duplicate handle, got %v", err)
	}
}

func TestRatingAndTripCounters(t *testing.T) {
	service := newTestService(t, openTestDB(t), nil, nil)
	ctx := context.Background()

	account, err := service.Register(ctx, RegisterInput{
		Handle: "seller", Email: "seller@example.com", Password: "pw", Country: "Kenya",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := service.AddRating(ctx, account.ID, 5); err != nil {
		t.Fatalf("add rating failed: %v", err)
	}
	if err := service.AddRating(ctx, account.ID, 3); err != nil {
		t.Fatalf("add rating failed: %v", err)
	}
	if err := service.IncrementTrips(ctx, account.ID); err != nil {
		t.Fatalf("increment trips failed: %v", err)
	}

	reloaded, err := service.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.RatingTotal != 8 || reloaded.RatingCount != 2 {
		t.Fatalf("unexpected rating aggregate: %d/%d", reloaded.RatingTotal, reloaded.RatingCount)
	}
	if reloaded.TripsCompleted != 1 {
		t.Fatalf("unexpected trip counter: %d", reloaded.TripsCompleted)
	}

	if err := service.AddRating(ctx, account.ID, 9); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for out-of-range stars, got %v", err)
	}
}
