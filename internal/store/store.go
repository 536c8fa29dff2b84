package store

import (
	"context"

	"github.com/sells-group/feedback-cli/internal/model"
)

// Store defines the persistence interface for analyzed reviews. One
// record per customer email; a newer review for the same customer
// replaces the previous analysis.
type Store interface {
	// Reviews
	UpsertReview(ctx context.Context, r *model.Review) (*model.Review, error)
	UpsertReviews(ctx context.Context, reviews []*model.Review) (int, error)
	GetReviewByEmail(ctx context.Context, email string) (*model.Review, error)
	ListReviews(ctx context.Context, filter model.ReviewFilter) ([]model.Review, error)

	// Analytics
	Stats(ctx context.Context) (*model.ReviewStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
