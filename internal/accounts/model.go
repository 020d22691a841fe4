package accounts

import (
	"strings"
	"time"
)

// CountryNotSpecified is the placeholder stored for auto-created accounts until
// the owner picks a real country.
const CountryNotSpecified = "Not specified"

// handleSeparator is the marker embedded in machine-synthesized handles. Its
// presence keeps an auto-created profile incomplete until the owner chooses a
// real handle.
const handleSeparator = "_"

// Account is the local user record. ExternalID links it to the identity
// provider's subject; legacy password accounts leave it nil.
type Account struct {
	ID           string  `gorm:"column:id;primaryKey;size:36;not null"`
	ExternalID   *string `gorm:"column:external_id;size:190;uniqueIndex"`
	Handle       string  `gorm:"column:handle;size:64;uniqueIndex;not null"`
	Email        string  `gorm:"column:email;size:320;uniqueIndex;not null"`
	PasswordHash string  `gorm:"column:password_hash;size:128"`
	DisplayName  string  `gorm:"column:display_name;size:190"`
	PhotoURL     string  `gorm:"column:photo_url;size:512"`
	Country      string  `gorm:"column:country;size:64;not null;default:'Not specified'"`
	Phone        string  `gorm:"column:phone;size:32"`
	Bio          string  `gorm:"column:bio;type:text"`
	IsSeller     bool    `gorm:"column:is_seller;not null;default:false"`

	RatingTotal    int64 `gorm:"column:rating_total;not null;default:0"`
	RatingCount    int64 `gorm:"column:rating_count;not null;default:0"`
	TripsCompleted int64 `gorm:"column:trips_completed;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Account) TableName() string {
	return "accounts"
}

// NormalizeHandle trims and lower-cases a handle before persistence or lookup.
func NormalizeHandle(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ProfileComplete reports whether the account is usable for marketplace
// activity: the handle was chosen by a human (non-empty, no synthesis marker)
// and the country was explicitly set. This is the single definition; it is
// computed from stored state, never persisted.
func (a Account) ProfileComplete() bool {
	if a.Handle == "" || strings.Contains(a.Handle, handleSeparator) {
		return false
	}
	return a.Country != "" && a.Country != CountryNotSpecified
}
