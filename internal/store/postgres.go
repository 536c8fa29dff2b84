package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/feedback-cli/internal/db"
	"github.com/sells-group/feedback-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_review_by_email": `SELECT id, customer_name, customer_email, review_text, rating, sentiment, sentiment_score, urgency_level, categories, key_issues, ai_processed, ai_error, email_sent, email_template, created_at, updated_at FROM reviews WHERE customer_email = $1`,
	"stats_totals":        `SELECT COUNT(*), COALESCE(SUM(CASE WHEN email_sent THEN 1 ELSE 0 END), 0), COALESCE(SUM(CASE WHEN ai_processed THEN 1 ELSE 0 END), 0) FROM reviews`,
	"stats_sentiment":     `SELECT sentiment, COUNT(*) FROM reviews GROUP BY sentiment`,
	"stats_urgency":       `SELECT urgency_level, COUNT(*) FROM reviews GROUP BY urgency_level`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reviews (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	customer_name   TEXT NOT NULL,
	customer_email  TEXT NOT NULL UNIQUE,
	review_text     TEXT NOT NULL,
	rating          INTEGER,
	sentiment       TEXT NOT NULL DEFAULT 'neutral',
	sentiment_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	urgency_level   TEXT NOT NULL DEFAULT 'medium',
	categories      JSONB NOT NULL DEFAULT '[]',
	key_issues      JSONB NOT NULL DEFAULT '[]',
	ai_processed    BOOLEAN NOT NULL DEFAULT false,
	ai_error        TEXT,
	email_sent      BOOLEAN NOT NULL DEFAULT false,
	email_template  TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reviews_sentiment ON reviews(sentiment);
CREATE INDEX IF NOT EXISTS idx_reviews_urgency ON reviews(urgency_level);
CREATE INDEX IF NOT EXISTS idx_reviews_email_sent ON reviews(email_sent);
CREATE INDEX IF NOT EXISTS idx_reviews_created_at ON reviews(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertReview(ctx context.Context, r *model.Review) (*model.Review, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	categoriesJSON, keyIssuesJSON, err := marshalReviewLists(r)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal review")
	}

	out := *r
	err = s.pool.QueryRow(ctx,
		`INSERT INTO reviews
		 (id, customer_name, customer_email, review_text, rating, sentiment, sentiment_score, urgency_level, categories, key_issues, ai_processed, ai_error, email_sent, email_template, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (customer_email) DO UPDATE SET
		   customer_name = $2, review_text = $4, rating = $5, sentiment = $6,
		   sentiment_score = $7, urgency_level = $8, categories = $9, key_issues = $10,
		   ai_processed = $11, ai_error = $12, email_sent = $13, email_template = $14,
		   updated_at = $16
		 RETURNING id, created_at`,
		id, r.CustomerName, r.CustomerEmail, r.ReviewText, r.Rating,
		string(r.Sentiment), r.SentimentScore, string(r.UrgencyLevel),
		categoriesJSON, keyIssuesJSON, r.AIProcessed, nullableString(r.AIError),
		r.EmailSent, templateString(r.EmailTemplate), now, now,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert review %s", r.CustomerEmail)
	}
	out.UpdatedAt = now
	return &out, nil
}

// reviewColumns is the column order used by UpsertReviews.
var reviewColumns = []string{
	"id", "customer_name", "customer_email", "review_text", "rating",
	"sentiment", "sentiment_score", "urgency_level", "categories", "key_issues",
	"ai_processed", "ai_error", "email_sent", "email_template",
	"created_at", "updated_at",
}

func (s *PostgresStore) UpsertReviews(ctx context.Context, reviews []*model.Review) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(reviews))
	for _, r := range reviews {
		categoriesJSON, keyIssuesJSON, err := marshalReviewLists(r)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal review %s", r.CustomerEmail)
		}
		rows = append(rows, []any{
			uuid.New().String(), r.CustomerName, r.CustomerEmail, r.ReviewText, r.Rating,
			string(r.Sentiment), r.SentimentScore, string(r.UrgencyLevel),
			categoriesJSON, keyIssuesJSON, r.AIProcessed, nullableString(r.AIError),
			r.EmailSent, templateString(r.EmailTemplate), now, now,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "reviews",
		Columns:      reviewColumns,
		ConflictKeys: []string{"customer_email"},
		UpdateCols: []string{
			"customer_name", "review_text", "rating", "sentiment", "sentiment_score",
			"urgency_level", "categories", "key_issues", "ai_processed", "ai_error",
			"email_sent", "email_template", "updated_at",
		},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: bulk upsert reviews")
	}
	return int(n), nil
}

func (s *PostgresStore) GetReviewByEmail(ctx context.Context, email string) (*model.Review, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, customer_name, customer_email, review_text, rating, sentiment, sentiment_score, urgency_level, categories, key_issues, ai_processed, ai_error, email_sent, email_template, created_at, updated_at
		 FROM reviews WHERE customer_email = $1`,
		email,
	)
	r, err := scanReview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get review %s", email)
	}
	return r, nil
}

func (s *PostgresStore) ListReviews(ctx context.Context, filter model.ReviewFilter) ([]model.Review, error) {
	query := `SELECT id, customer_name, customer_email, review_text, rating, sentiment, sentiment_score, urgency_level, categories, key_issues, ai_processed, ai_error, email_sent, email_template, created_at, updated_at FROM reviews WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Sentiment != "" {
		query += fmt.Sprintf(` AND sentiment = $%d`, argIdx)
		args = append(args, string(filter.Sentiment))
		argIdx++
	}
	if filter.Urgency != "" {
		query += fmt.Sprintf(` AND urgency_level = $%d`, argIdx)
		args = append(args, string(filter.Urgency))
		argIdx++
	}
	if filter.EmailSent != nil {
		query += fmt.Sprintf(` AND email_sent = $%d`, argIdx)
		args = append(args, *filter.EmailSent)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reviews")
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		reviews = append(reviews, *r)
	}
	return reviews, eris.Wrap(rows.Err(), "postgres: list reviews iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.ReviewStats, error) {
	stats := newReviewStats()

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN email_sent THEN 1 ELSE 0 END), 0), COALESCE(SUM(CASE WHEN ai_processed THEN 1 ELSE 0 END), 0) FROM reviews`,
	).Scan(&stats.TotalReviews, &stats.EmailsSent, &stats.AIProcessed)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats totals")
	}

	if err := s.statsBreakdown(ctx, `SELECT sentiment, COUNT(*) FROM reviews GROUP BY sentiment`, func(key string, n int) {
		stats.SentimentBreakdown[model.Sentiment(key)] = n
	}); err != nil {
		return nil, eris.Wrap(err, "postgres: stats sentiment")
	}
	if err := s.statsBreakdown(ctx, `SELECT urgency_level, COUNT(*) FROM reviews GROUP BY urgency_level`, func(key string, n int) {
		stats.UrgencyBreakdown[model.UrgencyLevel(key)] = n
	}); err != nil {
		return nil, eris.Wrap(err, "postgres: stats urgency")
	}

	if stats.TotalReviews > 0 {
		stats.ProcessingRate = float64(stats.AIProcessed) / float64(stats.TotalReviews)
	}
	return stats, nil
}

func (s *PostgresStore) statsBreakdown(ctx context.Context, query string, set func(key string, n int)) error {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		set(key, n)
	}
	return rows.Err()
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*model.Review, error) {
	var r model.Review
	var categoriesJSON, keyIssuesJSON []byte
	var aiError, emailTemplate *string

	err := row.Scan(
		&r.ID, &r.CustomerName, &r.CustomerEmail, &r.ReviewText, &r.Rating,
		&r.Sentiment, &r.SentimentScore, &r.UrgencyLevel,
		&categoriesJSON, &keyIssuesJSON, &r.AIProcessed, &aiError,
		&r.EmailSent, &emailTemplate, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(categoriesJSON, &r.Categories); err != nil {
		return nil, eris.Wrap(err, "unmarshal categories")
	}
	if err := json.Unmarshal(keyIssuesJSON, &r.KeyIssues); err != nil {
		return nil, eris.Wrap(err, "unmarshal key issues")
	}
	if aiError != nil {
		r.AIError = *aiError
	}
	if emailTemplate != nil {
		t := model.EmailTemplate(*emailTemplate)
		r.EmailTemplate = &t
	}
	return &r, nil
}

func marshalReviewLists(r *model.Review) ([]byte, []byte, error) {
	categories := r.Categories
	if categories == nil {
		categories = []model.Category{}
	}
	keyIssues := r.KeyIssues
	if keyIssues == nil {
		keyIssues = []string{}
	}

	categoriesJSON, err := json.Marshal(categories)
	if err != nil {
		return nil, nil, err
	}
	keyIssuesJSON, err := json.Marshal(keyIssues)
	if err != nil {
		return nil, nil, err
	}
	return categoriesJSON, keyIssuesJSON, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func templateString(t *model.EmailTemplate) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

func newReviewStats() *model.ReviewStats {
	stats := &model.ReviewStats{
		SentimentBreakdown: make(map[model.Sentiment]int, len(model.AllSentiments())),
		UrgencyBreakdown:   make(map[model.UrgencyLevel]int, len(model.AllUrgencyLevels())),
	}
	for _, s := range model.AllSentiments() {
		stats.SentimentBreakdown[s] = 0
	}
	for _, u := range model.AllUrgencyLevels() {
		stats.UrgencyBreakdown[u] = 0
	}
	return stats
}
