package orders

import (
	"strings"
	"time"

	"github.com/stowagehq/stowage/backend/internal/listings"
)

// Status enumerates the order lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a raw order status.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusAccepted:
		return StatusAccepted, true
	case StatusDelivered:
		return StatusDelivered, true
	case StatusCancelled:
		return StatusCancelled, true
	default:
		return "", false
	}
}

// canTransition encodes the one-way lifecycle: pending splits into accepted or
// cancelled, accepted into delivered or cancelled, and the rest are terminal.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusAccepted || to == StatusCancelled
	case StatusAccepted:
		return to == StatusDelivered || to == StatusCancelled
	default:
		return false
	}
}

// Order is a transactional record referencing a listing and both parties. The
// unit price is snapshotted at creation so later listing edits do not change
// agreed terms.
type Order struct {
	ID          string        `gorm:"column:id;primaryKey;size:36;not null"`
	ListingID   string        `gorm:"column:listing_id;size:36;not null;index"`
	ListingKind listings.Kind `gorm:"column:listing_kind;size:16;not null"`
	SellerID    string        `gorm:"column:seller_id;size:36;not null;index"`
	BuyerID     string        `gorm:"column:buyer_id;size:36;not null;index"`

	QuantityKg float64 `gorm:"column:quantity_kg;not null"`
	UnitPrice  float64 `gorm:"column:unit_price;not null"`
	TotalPrice float64 `gorm:"column:total_price;not null"`
	Status     Status  `gorm:"column:status;size:16;not null;default:'pending'"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Order) TableName() string {
	return "orders"
}
