package catalog

import (
	"net/mail"
	"strings"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
)

// Review rating bounds accepted by WooCommerce
const (
	MinRating = 1
	MaxRating = 5
)

// ReviewStatusHold puts a new review in the WordPress moderation queue
const ReviewStatusHold = "hold"

// Review is an approved product review
type Review struct {
	ID          int64
	ProductID   int64
	Reviewer    string
	Review      string
	Rating      int
	Verified    bool
	DateCreated time.Time
}

// NewReview is a review submitted by a shopper, awaiting moderation
type NewReview struct {
	ProductID     int64
	Reviewer      string
	ReviewerEmail string
	Review        string
	Rating        int
	Status        string
}

// NewProductReview validates a submitted review and prepares it for moderation
func NewProductReview(productID int64, reviewer, email, text string, rating int) (*NewReview, error) {
	if productID <= 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product ID must be positive")
	}
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Reviewer name is required")
	}
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Reviewer email is invalid")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Review text is required")
	}
	if rating < MinRating || rating > MaxRating {
		return nil, shared.NewDomainError("INVALID_INPUT", "Rating must be between 1 and 5")
	}
	return &NewReview{
		ProductID:     productID,
		Reviewer:      reviewer,
		ReviewerEmail: email,
		Review:        text,
		Rating:        rating,
		Status:        ReviewStatusHold,
	}, nil
}
