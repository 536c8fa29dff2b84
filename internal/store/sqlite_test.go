package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/feedback-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleReview(email string) *model.Review {
	rating := 2
	tmpl := model.TemplateServiceConcern
	return &model.Review{
		CustomerName:   "Dana Reyes",
		CustomerEmail:  email,
		ReviewText:     "Waited forty minutes for a cold entree.",
		Rating:         &rating,
		Sentiment:      model.SentimentNegative,
		SentimentScore: 0.9,
		UrgencyLevel:   model.UrgencyHigh,
		Categories:     []model.Category{model.CategoryService, model.CategoryQuality},
		KeyIssues:      []string{"long wait", "cold food"},
		AIProcessed:    true,
		EmailSent:      true,
		EmailTemplate:  &tmpl,
	}
}

func TestSQLite_UpsertReview_InsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	stored, err := st.UpsertReview(ctx, sampleReview("dana@example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)

	got, err := st.GetReviewByEmail(ctx, "dana@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, "Dana Reyes", got.CustomerName)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 2, *got.Rating)
	assert.Equal(t, model.SentimentNegative, got.Sentiment)
	assert.Equal(t, 0.9, got.SentimentScore)
	assert.Equal(t, model.UrgencyHigh, got.UrgencyLevel)
	assert.Equal(t, []model.Category{model.CategoryService, model.CategoryQuality}, got.Categories)
	assert.Equal(t, []string{"long wait", "cold food"}, got.KeyIssues)
	assert.True(t, got.AIProcessed)
	assert.True(t, got.EmailSent)
	require.NotNil(t, got.EmailTemplate)
	assert.Equal(t, model.TemplateServiceConcern, *got.EmailTemplate)
}

func TestSQLite_UpsertReview_ReplacesByEmail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.UpsertReview(ctx, sampleReview("dana@example.com"))
	require.NoError(t, err)

	second := sampleReview("dana@example.com")
	second.ReviewText = "Much better this time."
	second.Sentiment = model.SentimentPositive
	second.UrgencyLevel = model.UrgencyLow
	second.EmailSent = false
	second.EmailTemplate = nil

	stored, err := st.UpsertReview(ctx, second)
	require.NoError(t, err)
	// Same customer keeps the original row.
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "Much better this time.", stored.ReviewText)
	assert.Equal(t, model.SentimentPositive, stored.Sentiment)
	assert.Nil(t, stored.EmailTemplate)

	all, err := st.ListReviews(ctx, model.ReviewFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_GetReviewByEmail_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetReviewByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_UpsertReview_NilRatingAndLists(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	r := sampleReview("nil@example.com")
	r.Rating = nil
	r.Categories = nil
	r.KeyIssues = nil
	r.EmailTemplate = nil
	r.AIError = "urgency determination error: timeout"

	stored, err := st.UpsertReview(ctx, r)
	require.NoError(t, err)
	assert.Nil(t, stored.Rating)
	assert.Empty(t, stored.Categories)
	assert.Empty(t, stored.KeyIssues)
	assert.Nil(t, stored.EmailTemplate)
	assert.Equal(t, "urgency determination error: timeout", stored.AIError)
}

func TestSQLite_ListReviews_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	neg := sampleReview("neg@example.com")
	_, err := st.UpsertReview(ctx, neg)
	require.NoError(t, err)

	pos := sampleReview("pos@example.com")
	pos.Sentiment = model.SentimentPositive
	pos.UrgencyLevel = model.UrgencyLow
	pos.EmailSent = false
	pos.EmailTemplate = nil
	_, err = st.UpsertReview(ctx, pos)
	require.NoError(t, err)

	bySentiment, err := st.ListReviews(ctx, model.ReviewFilter{Sentiment: model.SentimentNegative})
	require.NoError(t, err)
	require.Len(t, bySentiment, 1)
	assert.Equal(t, "neg@example.com", bySentiment[0].CustomerEmail)

	byUrgency, err := st.ListReviews(ctx, model.ReviewFilter{Urgency: model.UrgencyLow})
	require.NoError(t, err)
	require.Len(t, byUrgency, 1)
	assert.Equal(t, "pos@example.com", byUrgency[0].CustomerEmail)

	sent := true
	bySent, err := st.ListReviews(ctx, model.ReviewFilter{EmailSent: &sent})
	require.NoError(t, err)
	require.Len(t, bySent, 1)
	assert.Equal(t, "neg@example.com", bySent[0].CustomerEmail)

	limited, err := st.ListReviews(ctx, model.ReviewFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_UpsertReviews_Bulk(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	reviews := []*model.Review{
		sampleReview("a@example.com"),
		sampleReview("b@example.com"),
		sampleReview("a@example.com"), // duplicate email collapses
	}

	n, err := st.UpsertReviews(ctx, reviews)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := st.ListReviews(ctx, model.ReviewFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLite_Stats(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.UpsertReview(ctx, sampleReview("neg@example.com"))
	require.NoError(t, err)

	pos := sampleReview("pos@example.com")
	pos.Sentiment = model.SentimentPositive
	pos.UrgencyLevel = model.UrgencyLow
	pos.EmailSent = false
	pos.EmailTemplate = nil
	_, err = st.UpsertReview(ctx, pos)
	require.NoError(t, err)

	failed := sampleReview("failed@example.com")
	failed.Sentiment = model.SentimentNeutral
	failed.UrgencyLevel = model.UrgencyMedium
	failed.AIProcessed = false
	failed.EmailSent = false
	failed.EmailTemplate = nil
	failed.AIError = "sentiment analysis error: timeout"
	_, err = st.UpsertReview(ctx, failed)
	require.NoError(t, err)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalReviews)
	assert.Equal(t, 1, stats.EmailsSent)
	assert.Equal(t, 2, stats.AIProcessed)
	assert.Equal(t, 1, stats.SentimentBreakdown[model.SentimentNegative])
	assert.Equal(t, 1, stats.SentimentBreakdown[model.SentimentPositive])
	assert.Equal(t, 1, stats.SentimentBreakdown[model.SentimentNeutral])
	assert.Equal(t, 1, stats.UrgencyBreakdown[model.UrgencyHigh])
	assert.Equal(t, 1, stats.UrgencyBreakdown[model.UrgencyLow])
	assert.Equal(t, 1, stats.UrgencyBreakdown[model.UrgencyMedium])
	assert.Equal(t, 0, stats.UrgencyBreakdown[model.UrgencyCritical])
	assert.InDelta(t, 2.0/3.0, stats.ProcessingRate, 1e-9)
}

func TestSQLite_Stats_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalReviews)
	assert.Zero(t, stats.ProcessingRate)
	assert.Equal(t, 0, stats.SentimentBreakdown[model.SentimentPositive])
}
