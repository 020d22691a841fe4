package accounts

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/stowagehq/stowage/backend/internal/apperr"
	"github.com/stowagehq/stowage/backend/internal/auth"
)

const externalIDFragmentLength = 6

var (
	errMissingDatabase = errors.New("accounts: database handle is required")

	msgHandleTaken   = "Username is already taken"
	msgEmailTaken    = "Email is already registered"
	msgDuplicateRace = "Username or email already exists"
)

// MediaStore copies a remote image into platform-owned storage.
type MediaStore interface {
	CopyFromURL(ctx context.Context, sourceURL string) (string, error)
}

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Database *gorm.DB
	// IdentityAdmin rolls back provider accounts when local creation loses a
	// uniqueness race. Optional; nil skips the compensating delete.
	IdentityAdmin auth.IdentityAdmin
	// Media copies provider-hosted photos into our own bucket. Optional.
	Media MediaStore
	// IdentityCDNHosts lists hostnames whose photos should be re-hosted.
	IdentityCDNHosts []string
	Clock            func() time.Time
	Logger           *zap.Logger
}

// Service manages account records and the identity reconciliation flow.
type Service struct {
	db            *gorm.DB
	identityAdmin auth.IdentityAdmin
	media         MediaStore
	cdnHosts      []string
	now           func() time.Time
	logger        *zap.Logger
}

// NewService constructs the account service.
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
		db:            cfg.Database,
		identityAdmin: cfg.IdentityAdmin,
		media:         cfg.Media,
		cdnHosts:      cfg.IdentityCDNHosts,
		now:           clock,
		logger:        logger,
	}, nil
}

// ReconcileInput carries a verified identity assertion plus any profile fields
// the caller chose to supply. Empty strings mean "not provided".
type ReconcileInput struct {
	ExternalID  string
	Email       string
	Handle      string
	Country     string
	DisplayName string
	PhotoURL    string
	Phone       string
	Bio         string
}

// ReconcileResult reports the resolved account and its derived state.
type ReconcileResult struct {
	Account         Account
	ProfileComplete bool
	IsNew           bool
}

// Reconcile finds or creates the local account for a verified external
// identity. The caller must have verified the assertion already; this method
// only trusts its inputs.
func (s *Service) Reconcile(ctx context.Context, input ReconcileInput) (ReconcileResult, error) {
	externalID := strings.TrimSpace(input.ExternalID)
	email := strings.TrimSpace(input.Email)
	if externalID == "" || email == "" {
		return ReconcileResult{}, apperr.Validation("External id and email are required")
	}

	input.PhotoURL = s.rehostPhoto(ctx, input.PhotoURL)

	var account Account
	err := s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&account).Error
	switch {
	case err == nil:
		updated, updateErr := s.applyProvidedFields(ctx, account, input)
		if updateErr != nil {
			return ReconcileResult{}, updateErr
		}
		return ReconcileResult{Account: updated, ProfileComplete: updated.ProfileComplete(), IsNew: false}, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, createErr := s.createFromIdentity(ctx, externalID, email, input)
		if createErr != nil {
			return ReconcileResult{}, createErr
		}
		return ReconcileResult{Account: created, ProfileComplete: created.ProfileComplete(), IsNew: true}, nil
	default:
		return ReconcileResult{}, err
	}
}

// rehostPhoto copies a provider-CDN photo into our media store. Best effort:
// any failure falls back to the original URL.
func (s *Service) rehostPhoto(ctx context.Context, photoURL string) string {
	if photoURL == "" || s.media == nil || !s.isProviderCDN(photoURL) {
		return photoURL
	}
	hosted, err := s.media.CopyFromURL(ctx, photoURL)
	if err != nil {
		s.logger.Warn("photo re-host failed, keeping provider url", zap.Error(err))
		return photoURL
	}
	return hosted
}

func (s *Service) isProviderCDN(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	for _, host := range s.cdnHosts {
		if strings.EqualFold(parsed.Host, host) {
			return true
		}
	}
	return false
}

func (s *Service) applyProvidedFields(ctx context.Context, account Account, input ReconcileInput) (Account, error) {
	updates := map[string]interface{}{}

	if handle := NormalizeHandle(input.Handle); handle != "" && handle != account.Handle {
		taken, err := s.handleTakenByOther(ctx, handle, account.ID)
		if err != nil {
			return Account{}, err
		}
		if taken {
			return Account{}, apperr.Conflict(msgHandleTaken)
		}
		updates["handle"] = handle
	}
	if email := strings.TrimSpace(input.Email); email != "" && email != account.Email {
		taken, err := s.emailTakenByOther(ctx, email, account.ID)
		if err != nil {
			return Account{}, err
		}
		if taken {
			return Account{}, apperr.Conflict(msgEmailTaken)
		}
		updates["email"] = email
	}
	if country := strings.TrimSpace(input.Country); country != "" {
		updates["country"] = country
	}
	if input.DisplayName != "" {
		updates["display_name"] = input.DisplayName
	}
	if input.PhotoURL != "" {
		updates["photo_url"] = input.PhotoURL
	}
	if input.Phone != "" {
		updates["phone"] = input.Phone
	}
	if input.Bio != "" {
		updates["bio"] = input.Bio
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&Account{}).Where("id = ?", account.ID).Updates(updates).Error; err != nil {
			return Account{}, err
		}
	}

	var refreshed Account
	if err := s.db.WithContext(ctx).Where("id = ?", account.ID).First(&refreshed).Error; err != nil {
		return Account{}, err
	}
	return refreshed, nil
}

func (s *Service) createFromIdentity(ctx context.Context, externalID, email string, input ReconcileInput) (Account, error) {
	handle := NormalizeHandle(input.Handle)
	country := strings.TrimSpace(input.Country)

	if handle == "" || country == "" || country == CountryNotSpecified {
		synthesized, err := s.synthesizeHandle(ctx, email, externalID)
		if err != nil {
			return Account{}, err
		}
		handle = synthesized
		country = CountryNotSpecified
	}

	account := Account{
		ID:          uuid.NewString(),
		ExternalID:  &externalID,
		Handle:      handle,
		Email:       email,
		DisplayName: input.DisplayName,
		PhotoURL:    input.PhotoURL,
		Country:     country,
		Phone:       input.Phone,
		Bio:         input.Bio,
	}

	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		if isDuplicateKey(err) {
			s.rollbackIdentity(ctx, externalID)
			return Account{}, apperr.Wrap(apperr.KindConflict, msgDuplicateRace, err)
		}
		return Account{}, err
	}
	return account, nil
}

// synthesizeHandle derives a placeholder handle from the email local-part and
// a fragment of the external id, probing with numeric suffixes until free. The
// embedded separator keeps such accounts profile-incomplete by construction.
func (s *Service) synthesizeHandle(ctx context.Context, email, externalID string) (string, error) {
	localPart := email
	if at := strings.Index(email, "@"); at >= 0 {
		localPart = email[:at]
	}
	fragment := externalID
	if len(fragment) > externalIDFragmentLength {
		fragment = fragment[:externalIDFragmentLength]
	}
	base := NormalizeHandle(localPart + handleSeparator + fragment)

	candidate := base
	for suffix := 1; ; suffix++ {
		taken, err := s.handleTakenByOther(ctx, candidate, "")
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(suffix)
	}
}

// rollbackIdentity compensates for a failed local create by deleting the
// external identity so no orphaned provider account survives. An identity that
// is already gone counts as a successful rollback.
func (s *Service) rollbackIdentity(ctx context.Context, externalID string) {
	if s.identityAdmin == nil {
		return
	}
	err := s.identityAdmin.DeleteIdentity(ctx, externalID)
	if err != nil && !errors.Is(err, auth.ErrIdentityGone) {
		s.logger.Error("identity rollback failed",
			zap.String("external_id", externalID),
			zap.Error(err))
	}
}

func (s *Service) handleTakenByOther(ctx context.Context, handle, excludeID string) (bool, error) {
	query := s.db.WithContext(ctx).Model(&Account{}).Where("handle = ?", handle)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) emailTakenByOther(ctx context.Context, email, excludeID string) (bool, error) {
	query := s.db.WithContext(ctx).Model(&Account{}).Where("email = ?", email)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// isDuplicateKey recognizes a storage-layer unique-constraint violation so the
// caller can distinguish "duplicate" from other write failures.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// RegisterInput carries a legacy direct-registration request.
type RegisterInput struct {
	Handle   string
	Email    string
	Password string
	Country  string
	Phone    string
	Bio      string
}

// Register creates a password-backed account without an external identity.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Account, error) {
	handle := NormalizeHandle(input.Handle)
	email := strings.TrimSpace(input.Email)
	if handle == "" || email == "" || input.Password == "" {
		return Account{}, apperr.Validation("Username, email and password are required")
	}

	if taken, err := s.handleTakenByOther(ctx, handle, ""); err != nil {
		return Account{}, err
	} else if taken {
		return Account{}, apperr.Conflict(msgHandleTaken)
	}
	if taken, err := s.emailTakenByOther(ctx, email, ""); err != nil {
		return Account{}, err
	} else if taken {
		return Account{}, apperr.Conflict(msgEmailTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	country := strings.TrimSpace(input.Country)
	if country == "" {
		country = CountryNotSpecified
	}

	account := Account{
		ID:           uuid.NewString(),
		Handle:       handle,
		Email:        email,
		PasswordHash: string(hash),
		Country:      country,
		Phone:        input.Phone,
		Bio:          input.Bio,
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		if isDuplicateKey(err) {
			return Account{}, apperr.Wrap(apperr.KindConflict, msgDuplicateRace, err)
		}
		return Account{}, err
	}
	return account, nil
}

// Login verifies a handle-or-email plus password pair.
func (s *Service) Login(ctx context.Context, handleOrEmail, password string) (Account, error) {
	identifier := strings.TrimSpace(handleOrEmail)
	if identifier == "" || password == "" {
		return Account{}, apperr.Validation("Username and password are required")
	}

	var account Account
	err := s.db.WithContext(ctx).
		Where("handle = ? OR email = ?", NormalizeHandle(identifier), identifier).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, apperr.New(apperr.KindAuth, "Invalid username or password")
	}
	if err != nil {
		return Account{}, err
	}
	if account.PasswordHash == "" {
		return Account{}, apperr.New(apperr.KindAuth, "Account uses external sign-in")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Account{}, apperr.New(apperr.KindAuth, "Invalid username or password")
	}
	return account, nil
}

// GetByID loads one account.
func (s *Service) GetByID(ctx context.Context, id string) (Account, error) {
	var account Account
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, apperr.NotFound("Account not found")
	}
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// GetByExternalID loads the account linked to a provider subject.
func (s *Service) GetByExternalID(ctx context.Context, externalID string) (Account, error) {
	var account Account
	err := s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, apperr.New(apperr.KindProfileNotFound, "Profile not found, complete registration")
	}
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// GetByHandle loads one account by normalized handle.
func (s *Service) GetByHandle(ctx context.Context, handle string) (Account, error) {
	var account Account
	err := s.db.WithContext(ctx).Where("handle = ?", NormalizeHandle(handle)).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, apperr.NotFound("Account not found")
	}
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// UpdateInput carries a partial profile edit. Empty strings mean "unchanged".
type UpdateInput struct {
	Handle      string
	Email       string
	Country     string
	DisplayName string
	PhotoURL    string
	Phone       string
	Bio         string
}

// Update applies a partial profile edit for the owning account.
func (s *Service) Update(ctx context.Context, accountID string, input UpdateInput) (Account, error) {
	account, err := s.GetByID(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	return s.applyProvidedFields(ctx, account, ReconcileInput{
		Handle:      input.Handle,
		Email:       input.Email,
		Country:     input.Country,
		DisplayName: input.DisplayName,
		PhotoURL:    input.PhotoURL,
		Phone:       input.Phone,
		Bio:         input.Bio,
	})
}

// Delete removes the account. Ownership is enforced by the transport layer:
// callers can only delete the account their credential resolves to.
func (s *Service) Delete(ctx context.Context, accountID string) error {
	result := s.db.WithContext(ctx).Where("id = ?", accountID).Delete(&Account{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("Account not found")
	}
	return nil
}

// BecomeSeller flips the seller flag on.
func (s *Service) BecomeSeller(ctx context.Context, accountID string) (Account, error) {
	result := s.db.WithContext(ctx).Model(&Account{}).Where("id = ?", accountID).Update("is_seller", true)
	if result.Error != nil {
		return Account{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Account{}, apperr.NotFound("Account not found")
	}
	return s.GetByID(ctx, accountID)
}

// AddRating pushes one review's stars into the seller's aggregate. Single
// UPDATE with column expressions; no read-modify-write.
func (s *Service) AddRating(ctx context.Context, sellerID string, stars int) error {
	if stars < 1 || stars > 5 {
		return apperr.Validation("Rating must be between 1 and 5")
	}
	result := s.db.WithContext(ctx).Model(&Account{}).
		Where("id = ?", sellerID).
		UpdateColumns(map[string]interface{}{
			"rating_total": gorm.Expr("rating_total + ?", stars),
			"rating_count": gorm.Expr("rating_count + ?", 1),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("Account not found")
	}
	return nil
}

// IncrementTrips bumps the completed-trip counter.
func (s *Service) IncrementTrips(ctx context.Context, accountID string) error {
	result := s.db.WithContext(ctx).Model(&Account{}).
		Where("id = ?", accountID).
		UpdateColumn("trips_completed", gorm.Expr("trips_completed + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("Account not found")
	}
	return nil
}
