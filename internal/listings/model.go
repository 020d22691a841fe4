package listings

import (
	"strings"
	"time"
)

// Kind distinguishes the two listing flavors sharing interest and completion
// behavior.
type Kind string

const (
	// KindLuggage is a traveler's spare-luggage capacity offer.
	KindLuggage Kind = "luggage"
	// KindContainer is a freight-container capacity offer.
	KindContainer Kind = "container"
)

// ParseKind validates a raw listing kind.
func ParseKind(raw string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindLuggage:
		return KindLuggage, true
	case KindContainer:
		return KindContainer, true
	default:
		return "", false
	}
}

// ContainerType enumerates supported container configurations.
type ContainerType string

const (
	ContainerTypeStandard     ContainerType = "standard"
	ContainerTypeHighCube     ContainerType = "high_cube"
	ContainerTypeRefrigerated ContainerType = "refrigerated"
	ContainerTypeOpenTop      ContainerType = "open_top"
)

// ParseContainerType validates a raw container type.
func ParseContainerType(raw string) (ContainerType, bool) {
	switch ContainerType(strings.ToLower(strings.TrimSpace(raw))) {
	case ContainerTypeStandard:
		return ContainerTypeStandard, true
	case ContainerTypeHighCube:
		return ContainerTypeHighCube, true
	case ContainerTypeRefrigerated:
		return ContainerTypeRefrigerated, true
	case ContainerTypeOpenTop:
		return ContainerTypeOpenTop, true
	default:
		return "", false
	}
}

// TaxClearanceMode enumerates who handles customs clearance.
type TaxClearanceMode string

const (
	TaxClearanceSeller TaxClearanceMode = "seller"
	TaxClearanceBuyer  TaxClearanceMode = "buyer"
	TaxClearanceShared TaxClearanceMode = "shared"
)

// ParseTaxClearanceMode validates a raw clearance mode.
func ParseTaxClearanceMode(raw string) (TaxClearanceMode, bool) {
	switch TaxClearanceMode(strings.ToLower(strings.TrimSpace(raw))) {
	case TaxClearanceSeller:
		return TaxClearanceSeller, true
	case TaxClearanceBuyer:
		return TaxClearanceBuyer, true
	case TaxClearanceShared:
		return TaxClearanceShared, true
	default:
		return "", false
	}
}

// Listing is a luggage-capacity offer posted by a traveler.
type Listing struct {
	ID             string  `gorm:"column:id;primaryKey;size:36;not null"`
	OwnerID        string  `gorm:"column:owner_id;size:36;not null;index"`
	Origin         string  `gorm:"column:origin;size:190;not null"`
	Destination    string  `gorm:"column:destination;size:190;not null"`
	CapacityKg     float64 `gorm:"column:capacity_kg;not null"`
	PricePerKg     float64 `gorm:"column:price_per_kg;not null"`
	DeliveryDays   int     `gorm:"column:delivery_days;not null"`
	ExpirationDays int     `gorm:"column:expiration_days;not null"`

	RatingTotal int64 `gorm:"column:rating_total;not null;default:0"`
	RatingCount int64 `gorm:"column:rating_count;not null;default:0"`
	Sales       int64 `gorm:"column:sales;not null;default:0"`
	Completed   bool  `gorm:"column:completed;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Listing) TableName() string {
	return "listings"
}

// ContainerListing is a freight-container capacity offer.
type ContainerListing struct {
	ID             string           `gorm:"column:id;primaryKey;size:36;not null"`
	OwnerID        string           `gorm:"column:owner_id;size:36;not null;index"`
	Location       string           `gorm:"column:location;size:190;not null"`
	Destination    string           `gorm:"column:destination;size:190;not null"`
	ContainerType  ContainerType    `gorm:"column:container_type;size:32;not null"`
	TaxClearance   TaxClearanceMode `gorm:"column:tax_clearance;size:16;not null"`
	CapacityKg     float64          `gorm:"column:capacity_kg;not null"`
	PricePerKg     float64          `gorm:"column:price_per_kg;not null"`
	DepartureAt    time.Time        `gorm:"column:departure_at;not null"`
	ArrivalAt      time.Time        `gorm:"column:arrival_at;not null"`
	ExpirationDays int              `gorm:"column:expiration_days;not null"`

	RatingTotal int64 `gorm:"column:rating_total;not null;default:0"`
	RatingCount int64 `gorm:"column:rating_count;not null;default:0"`
	Sales       int64 `gorm:"column:sales;not null;default:0"`
	Completed   bool  `gorm:"column:completed;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (ContainerListing) TableName() string {
	return "container_listings"
}

// Interest is one account's membership in a listing's interested-set. The
// composite primary key makes add and remove naturally idempotent per caller.
type Interest struct {
	ListingID   string    `gorm:"column:listing_id;primaryKey;size:36;not null"`
	ListingKind Kind      `gorm:"column:listing_kind;primaryKey;size:16;not null"`
	AccountID   string    `gorm:"column:account_id;primaryKey;size:36;not null;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Interest) TableName() string {
	return "listing_interests"
}

// ExpiresAt computes the completion gate for a listing created at the given
// time: completion is allowed only once this horizon has passed.
func ExpiresAt(createdAt time.Time, expirationDays int) time.Time {
	return createdAt.Add(time.Duration(expirationDays) * 24 * time.Hour)
}
