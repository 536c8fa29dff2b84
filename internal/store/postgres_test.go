package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/feedback-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var reviewSelectCols = []string{
	"id", "customer_name", "customer_email", "review_text", "rating",
	"sentiment", "sentiment_score", "urgency_level", "categories", "key_issues",
	"ai_processed", "ai_error", "email_sent", "email_template",
	"created_at", "updated_at",
}

func TestPostgresStore_GetReviewByEmail_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM reviews WHERE customer_email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetReviewByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetReviewByEmail_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rating := 1
	aiError := "categorization error: timeout"
	tmpl := "critical_response"
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM reviews WHERE customer_email = \$1`).
		WithArgs("dana@example.com").
		WillReturnRows(pgxmock.NewRows(reviewSelectCols).AddRow(
			"review-1", "Dana Reyes", "dana@example.com", "Terrible.", &rating,
			"negative", 0.95, "critical",
			[]byte(`["quality"]`), []byte(`["raw chicken"]`),
			true, &aiError, true, &tmpl,
			now, now,
		))

	got, err := s.GetReviewByEmail(context.Background(), "dana@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "review-1", got.ID)
	assert.Equal(t, model.SentimentNegative, got.Sentiment)
	assert.Equal(t, model.UrgencyCritical, got.UrgencyLevel)
	assert.Equal(t, []model.Category{model.CategoryQuality}, got.Categories)
	assert.Equal(t, "categorization error: timeout", got.AIError)
	require.NotNil(t, got.EmailTemplate)
	assert.Equal(t, model.TemplateCriticalResponse, *got.EmailTemplate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertReview(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO reviews .+ ON CONFLICT \(customer_email\) DO UPDATE SET .+ RETURNING id, created_at`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("review-1", now))

	stored, err := s.UpsertReview(context.Background(), sampleReview("dana@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "review-1", stored.ID)
	assert.Equal(t, now, stored.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListReviews_Filtered(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM reviews WHERE true AND sentiment = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("negative", 100).
		WillReturnRows(pgxmock.NewRows(reviewSelectCols).AddRow(
			"review-1", "Dana Reyes", "dana@example.com", "Terrible.", (*int)(nil),
			"negative", 0.9, "high",
			[]byte(`["service"]`), []byte(`[]`),
			true, (*string)(nil), false, (*string)(nil),
			now, now,
		))

	reviews, err := s.ListReviews(context.Background(), model.ReviewFilter{Sentiment: model.SentimentNegative})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Nil(t, reviews[0].Rating)
	assert.Empty(t, reviews[0].AIError)
	assert.Nil(t, reviews[0].EmailTemplate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE.+ FROM reviews`).
		WillReturnRows(pgxmock.NewRows([]string{"count", "emails_sent", "ai_processed"}).AddRow(4, 2, 3))
	mock.ExpectQuery(`SELECT sentiment, COUNT\(\*\) FROM reviews GROUP BY sentiment`).
		WillReturnRows(pgxmock.NewRows([]string{"sentiment", "count"}).
			AddRow("negative", 3).
			AddRow("positive", 1))
	mock.ExpectQuery(`SELECT urgency_level, COUNT\(\*\) FROM reviews GROUP BY urgency_level`).
		WillReturnRows(pgxmock.NewRows([]string{"urgency_level", "count"}).
			AddRow("high", 2).
			AddRow("low", 2))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalReviews)
	assert.Equal(t, 2, stats.EmailsSent)
	assert.Equal(t, 3, stats.AIProcessed)
	assert.Equal(t, 3, stats.SentimentBreakdown[model.SentimentNegative])
	assert.Equal(t, 0, stats.SentimentBreakdown[model.SentimentNeutral])
	assert.Equal(t, 2, stats.UrgencyBreakdown[model.UrgencyHigh])
	assert.Equal(t, 0, stats.UrgencyBreakdown[model.UrgencyCritical])
	assert.InDelta(t, 0.75, stats.ProcessingRate, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertReviews_Empty(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	n, err := s.UpsertReviews(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
