package conversations

import "time"

const snippetLength = 120

// Conversation pairs a buyer with a seller. The composite id is derived from
// the two account ids, so either party's first contact attempt resolves to the
// same record.
type Conversation struct {
	ID       string `gorm:"column:id;primaryKey;size:80;not null"`
	SellerID string `gorm:"column:seller_id;size:36;not null;index"`
	BuyerID  string `gorm:"column:buyer_id;size:36;not null;index"`

	SellerRead bool `gorm:"column:seller_read;not null;default:false"`
	BuyerRead  bool `gorm:"column:buyer_read;not null;default:false"`

	LastMessage string `gorm:"column:last_message;size:190"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Conversation) TableName() string {
	return "conversations"
}

// HasParticipant reports whether the account is one of the two parties.
func (c Conversation) HasParticipant(accountID string) bool {
	return c.SellerID == accountID || c.BuyerID == accountID
}

// ConversationID builds the deterministic composite key for a seller/buyer pair.
func ConversationID(sellerID, buyerID string) string {
	return sellerID + ":" + buyerID
}

// Message is an immutable entry in a conversation's timeline.
type Message struct {
	ID             string    `gorm:"column:id;primaryKey;size:36;not null"`
	ConversationID string    `gorm:"column:conversation_id;size:80;not null;index"`
	AuthorID       string    `gorm:"column:author_id;size:36;not null"`
	Body           string    `gorm:"column:body;type:text;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Message) TableName() string {
	return "messages"
}
