package server

import (
	"time"

	"github.com/stowagehq/stowage/backend/internal/accounts"
	"github.com/stowagehq/stowage/backend/internal/conversations"
	"github.com/stowagehq/stowage/backend/internal/listings"
	"github.com/stowagehq/stowage/backend/internal/orders"
	"github.com/stowagehq/stowage/backend/internal/reviews"
)

// accountPayload is the single canonical account shape at the API boundary.
// Every code path that returns an account returns exactly this.
type accountPayload struct {
	ID              string    `json:"id"`
	Handle          string    `json:"handle"`
	Email           string    `json:"email"`
	DisplayName     string    `json:"display_name,omitempty"`
	PhotoURL        string    `json:"photo_url,omitempty"`
	Country         string    `json:"country"`
	Phone           string    `json:"phone,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	IsSeller        bool      `json:"is_seller"`
	Rating          float64   `json:"rating"`
	RatingCount     int64     `json:"rating_count"`
	TripsCompleted  int64     `json:"trips_completed"`
	ProfileComplete bool      `json:"profile_complete"`
	CreatedAt       time.Time `json:"created_at"`
}

func toAccountPayload(account accounts.Account) accountPayload {
	rating := 0.0
	if account.RatingCount > 0 {
		rating = float64(account.RatingTotal) / float64(account.RatingCount)
	}
	return accountPayload{
		ID:              account.ID,
		Handle:          account.Handle,
		Email:           account.Email,
		DisplayName:     account.DisplayName,
		PhotoURL:        account.PhotoURL,
		Country:         account.Country,
		Phone:           account.Phone,
		Bio:             account.Bio,
		IsSeller:        account.IsSeller,
		Rating:          rating,
		RatingCount:     account.RatingCount,
		TripsCompleted:  account.TripsCompleted,
		ProfileComplete: account.ProfileComplete(),
		CreatedAt:       account.CreatedAt,
	}
}

type tokenPayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type listingPayload struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	CapacityKg     float64   `json:"capacity_kg"`
	PricePerKg     float64   `json:"price_per_kg"`
	DeliveryDays   int       `json:"delivery_days"`
	ExpirationDays int       `json:"expiration_days"`
	ExpiresAt      time.Time `json:"expires_at"`
	Rating         float64   `json:"rating"`
	RatingCount    int64     `json:"rating_count"`
	Sales          int64     `json:"sales"`
	Completed      bool      `json:"completed"`
	CreatedAt      time.Time `json:"created_at"`
}

func toListingPayload(listing listings.Listing) listingPayload {
	rating := 0.0
	if listing.RatingCount > 0 {
		rating = float64(listing.RatingTotal) / float64(listing.RatingCount)
	}
	return listingPayload{
		ID:             listing.ID,
		OwnerID:        listing.OwnerID,
		Origin:         listing.Origin,
		Destination:    listing.Destination,
		CapacityKg:     listing.CapacityKg,
		PricePerKg:     listing.PricePerKg,
		DeliveryDays:   listing.DeliveryDays,
		ExpirationDays: listing.ExpirationDays,
		ExpiresAt:      listings.ExpiresAt(listing.CreatedAt, listing.ExpirationDays),
		Rating:         rating,
		RatingCount:    listing.RatingCount,
		Sales:          listing.Sales,
		Completed:      listing.Completed,
		CreatedAt:      listing.CreatedAt,
	}
}

type containerPayload struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Location       string    `json:"location"`
	Destination    string    `json:"destination"`
	ContainerType  string    `json:"container_type"`
	TaxClearance   string    `json:"tax_clearance"`
	CapacityKg     float64   `json:"capacity_kg"`
	PricePerKg     float64   `json:"price_per_kg"`
	DepartureAt    time.Time `json:"departure_at"`
	ArrivalAt      time.Time `json:"arrival_at"`
	ExpirationDays int       `json:"expiration_days"`
	ExpiresAt      time.Time `json:"expires_at"`
	Rating         float64   `json:"rating"`
	RatingCount    int64     `json:"rating_count"`
	Sales          int64     `json:"sales"`
	Completed      bool      `json:"completed"`
	CreatedAt      time.Time `json:"created_at"`
}

func toContainerPayload(listing listings.ContainerListing) containerPayload {
	rating := 0.0
	if listing.RatingCount > 0 {
		rating = float64(listing.RatingTotal) / float64(listing.RatingCount)
	}
	return containerPayload{
		ID:             listing.ID,
		OwnerID:        listing.OwnerID,
		Location:       listing.Location,
		Destination:    listing.Destination,
		ContainerType:  string(listing.ContainerType),
		TaxClearance:   string(listing.TaxClearance),
		CapacityKg:     listing.CapacityKg,
		PricePerKg:     listing.PricePerKg,
		DepartureAt:    listing.DepartureAt,
		ArrivalAt:      listing.ArrivalAt,
		ExpirationDays: listing.ExpirationDays,
		ExpiresAt:      listings.ExpiresAt(listing.CreatedAt, listing.ExpirationDays),
		Rating:         rating,
		RatingCount:    listing.RatingCount,
		Sales:          listing.Sales,
		Completed:      listing.Completed,
		CreatedAt:      listing.CreatedAt,
	}
}

type conversationPayload struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	BuyerID     string    `json:"buyer_id"`
	SellerRead  bool      `json:"seller_read"`
	BuyerRead   bool      `json:"buyer_read"`
	LastMessage string    `json:"last_message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toConversationPayload(conversation conversations.Conversation) conversationPayload {
	return conversationPayload{
		ID:          conversation.ID,
		SellerID:    conversation.SellerID,
		BuyerID:     conversation.BuyerID,
		SellerRead:  conversation.SellerRead,
		BuyerRead:   conversation.BuyerRead,
		LastMessage: conversation.LastMessage,
		CreatedAt:   conversation.CreatedAt,
		UpdatedAt:   conversation.UpdatedAt,
	}
}

type messagePayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	AuthorID       string    `json:"author_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

func toMessagePayload(message conversations.Message) messagePayload {
	return messagePayload{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		AuthorID:       message.AuthorID,
		Body:           message.Body,
		CreatedAt:      message.CreatedAt,
	}
}

type orderPayload struct {
	ID          string    `json:"id"`
	ListingID   string    `json:"listing_id"`
	ListingKind string    `json:"listing_kind"`
	SellerID    string    `json:"seller_id"`
	BuyerID     string    `json:"buyer_id"`
	QuantityKg  float64   `json:"quantity_kg"`
	UnitPrice   float64   `json:"unit_price"`
	TotalPrice  float64   `json:"total_price"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toOrderPayload(order orders.Order) orderPayload {
	return orderPayload{
		ID:          order.ID,
		ListingID:   order.ListingID,
		ListingKind: string(order.ListingKind),
		SellerID:    order.SellerID,
		BuyerID:     order.BuyerID,
		QuantityKg:  order.QuantityKg,
		UnitPrice:   order.UnitPrice,
		TotalPrice:  order.TotalPrice,
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt,
	}
}

type reviewPayload struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	ReviewerID  string    `json:"reviewer_id"`
	ListingID   string    `json:"listing_id,omitempty"`
	ListingKind string    `json:"listing_kind,omitempty"`
	Stars       int       `json:"stars"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toReviewPayload(review reviews.Review) reviewPayload {
	return reviewPayload{
		ID:          review.ID,
		SellerID:    review.SellerID,
		ReviewerID:  review.ReviewerID,
		ListingID:   review.ListingID,
		ListingKind: string(review.ListingKind),
		Stars:       review.Stars,
		Comment:     review.Comment,
		CreatedAt:   review.CreatedAt,
	}
}
