package conversations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stowagehq/stowage/backend/internal/apperr"
)

var errMissingDatabase = errors.New("conversations: database handle is required")

// ServiceConfig describes the dependencies required for messaging.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service manages conversations and their message timelines.
type Service struct {
	db     *gorm.DB
	now    func() time.Time
	logger *zap.Logger
}

// NewService constructs the conversation service.
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
	return &Service{db: cfg.Database, now: clock, logger: logger}, nil
}

// Open finds or creates the conversation for a seller/buyer pair. The caller
// must be one of the two parties; repeated calls from either side resolve to
// the same record.
func (s *Service) Open(ctx context.Context, callerID, sellerID, buyerID string) (Conversation, error) {
	if sellerID == "" || buyerID == "" {
		return Conversation{}, apperr.Validation("Seller and buyer are required")
	}
	if sellerID == buyerID {
		return Conversation{}, apperr.Validation("Cannot open a conversation with yourself")
	}
	if callerID != sellerID && callerID != buyerID {
		return Conversation{}, apperr.Forbidden("Only a participant may open this conversation")
	}

	id := ConversationID(sellerID, buyerID)

	var conversation Conversation
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Conversation{}, err
	}

	conversation = Conversation{
		ID:         id,
		SellerID:   sellerID,
		BuyerID:    buyerID,
		SellerRead: callerID == sellerID,
		BuyerRead:  callerID == buyerID,
	}
	if createErr := s.db.WithContext(ctx).Create(&conversation).Error; createErr != nil {
		// A concurrent open from the other party may have won; re-read.
		var existing Conversation
		if readErr := s.db.WithContext(ctx).Where("id = ?", id).First(&existing).Error; readErr == nil {
			return existing, nil
		}
		return Conversation{}, createErr
	}
	return conversation, nil
}

// ListForAccount returns the conversations the account participates in,
// most recently active first.
func (s *Service) ListForAccount(ctx context.Context, accountID string) ([]Conversation, error) {
	var result []Conversation
	err := s.db.WithContext(ctx).
		Where("seller_id = ? OR buyer_id = ?", accountID, accountID).
		Order("updated_at DESC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get loads one conversation, restricted to its participants.
func (s *Service) Get(ctx context.Context, callerID, conversationID string) (Conversation, error) {
	var conversation Conversation
	err := s.db.WithContext(ctx).Where("id = ?", conversationID).First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Conversation{}, apperr.NotFound("Conversation not found")
	}
	if err != nil {
		return Conversation{}, err
	}
	if !conversation.HasParticipant(callerID) {
		return Conversation{}, apperr.Forbidden("Only a participant may view this conversation")
	}
	return conversation, nil
}

// MarkRead sets the caller's read flag. The other party's flag is untouched.
func (s *Service) MarkRead(ctx context.Context, callerID, conversationID string) (Conversation, error) {
	conversation, err := s.Get(ctx, callerID, conversationID)
	if err != nil {
		return Conversation{}, err
	}

	column := "buyer_read"
	if conversation.SellerID == callerID {
		column = "seller_read"
	}
	if err := s.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ?", conversationID).
		Update(column, true).Error; err != nil {
		return Conversation{}, err
	}
	return s.Get(ctx, callerID, conversationID)
}

// PostMessage appends an immutable message and updates the conversation's
// snippet and read flags: the author's flag is set, the other party's cleared.
func (s *Service) PostMessage(ctx context.Context, callerID, conversationID, body string) (Message, error) {
	text := strings.TrimSpace(body)
	if text == "" {
		return Message{}, apperr.Validation("Message body is required")
	}

	conversation, err := s.Get(ctx, callerID, conversationID)
	if err != nil {
		return Message{}, err
	}

	message := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		AuthorID:       callerID,
		Body:           text,
		CreatedAt:      s.now().UTC(),
	}

	snippet := text
	if len(snippet) > snippetLength {
		snippet = snippet[:snippetLength]
	}

	authorRead, otherRead := "buyer_read", "seller_read"
	if conversation.SellerID == callerID {
		authorRead, otherRead = "seller_read", "buyer_read"
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		return tx.Model(&Conversation{}).
			Where("id = ?", conversationID).
			Updates(map[string]interface{}{
				"last_message": snippet,
				authorRead:     true,
				otherRead:      false,
				"updated_at":   s.now().UTC(),
			}).Error
	})
	if txErr != nil {
		return Message{}, txErr
	}
	return message, nil
}

// ListMessages returns a conversation's timeline oldest-first, restricted to
// its participants.
func (s *Service) ListMessages(ctx context.Context, callerID, conversationID string) ([]Message, error) {
	if _, err := s.Get(ctx, callerID, conversationID); err != nil {
		return nil, err
	}
	var result []Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}
