package reviews

import (
	"time"

	"github.com/stowagehq/stowage/backend/internal/listings"
)

// Review is a reputational record left by a buyer for a seller. The composite
// unique index enforces at most one review per (reviewer, seller) pair.
type Review struct {
	ID          string        `gorm:"column:id;primaryKey;size:36;not null"`
	SellerID    string        `gorm:"column:seller_id;size:36;not null;uniqueIndex:idx_reviews_pair,priority:1"`
	ReviewerID  string        `gorm:"column:reviewer_id;size:36;not null;uniqueIndex:idx_reviews_pair,priority:2"`
	ListingID   string        `gorm:"column:listing_id;size:36;not null;index"`
	ListingKind listings.Kind `gorm:"column:listing_kind;size:16;not null"`
	Stars       int           `gorm:"column:stars;not null"`
	Comment     string        `gorm:"column:comment;type:text"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Review) TableName() string {
	return "reviews"
}
