package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/feedback-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reviews (
	id              TEXT PRIMARY KEY,
	customer_name   TEXT NOT NULL,
	customer_email  TEXT NOT NULL UNIQUE,
	review_text     TEXT NOT NULL,
	rating          INTEGER,
	sentiment       TEXT NOT NULL DEFAULT 'neutral',
	sentiment_score REAL NOT NULL DEFAULT 0,
	urgency_level   TEXT NOT NULL DEFAULT 'medium',
	categories      TEXT NOT NULL DEFAULT '[]',
	key_issues      TEXT NOT NULL DEFAULT '[]',
	ai_processed    INTEGER NOT NULL DEFAULT 0,
	ai_error        TEXT,
	email_sent      INTEGER NOT NULL DEFAULT 0,
	email_template  TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reviews_sentiment ON reviews(sentiment);
CREATE INDEX IF NOT EXISTS idx_reviews_urgency ON reviews(urgency_level);
CREATE INDEX IF NOT EXISTS idx_reviews_email_sent ON reviews(email_sent);
CREATE INDEX IF NOT EXISTS idx_reviews_created_at ON reviews(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertReview(ctx context.Context, r *model.Review) (*model.Review, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	categoriesJSON, keyIssuesJSON, err := marshalReviewLists(r)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal review")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reviews
		 (id, customer_name, customer_email, review_text, rating, sentiment, sentiment_score, urgency_level, categories, key_issues, ai_processed, ai_error, email_sent, email_template, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (customer_email) DO UPDATE SET
		   customer_name = excluded.customer_name,
		   review_text = excluded.review_text,
		   rating = excluded.rating,
		   sentiment = excluded.sentiment,
		   sentiment_score = excluded.sentiment_score,
		   urgency_level = excluded.urgency_level,
		   categories = excluded.categories,
		   key_issues = excluded.key_issues,
		   ai_processed = excluded.ai_processed,
		   ai_error = excluded.ai_error,
		   email_sent = excluded.email_sent,
		   email_template = excluded.email_template,
		   updated_at = excluded.updated_at`,
		id, r.CustomerName, r.CustomerEmail, r.ReviewText, r.Rating,
		string(r.Sentiment), r.SentimentScore, string(r.UrgencyLevel),
		string(categoriesJSON), string(keyIssuesJSON), r.AIProcessed, nullableString(r.AIError),
		r.EmailSent, templateString(r.EmailTemplate), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert review %s", r.CustomerEmail)
	}

	stored, err := s.GetReviewByEmail(ctx, r.CustomerEmail)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, eris.Errorf("sqlite: review not found after upsert: %s", r.CustomerEmail)
	}
	return stored, nil
}

func (s *SQLiteStore) UpsertReviews(ctx context.Context, reviews []*model.Review) (int, error) {
	n := 0
	for _, r := range reviews {
		if _, err := s.UpsertReview(ctx, r); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *SQLiteStore) GetReviewByEmail(ctx context.Context, email string) (*model.Review, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, customer_name, customer_email, review_text, rating, sentiment, sentiment_score, urgency_level, categories, key_issues, ai_processed, ai_error, email_sent, email_template, created_at, updated_at
		 FROM reviews WHERE customer_email = ?`,
		email,
	)
	r, err := scanSQLiteReview(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get review %s", email)
	}
	return r, nil
}

func (s *SQLiteStore) ListReviews(ctx context.Context, filter model.ReviewFilter) ([]model.Review, error) {
	query := `SELECT id, customer_name, customer_email, review_text, rating, sentiment, sentiment_score, urgency_level, categories, key_issues, ai_processed, ai_error, email_sent, email_template, created_at, updated_at FROM reviews WHERE 1=1`
	args := []any{}

	if filter.Sentiment != "" {
		query += ` AND sentiment = ?`
		args = append(args, string(filter.Sentiment))
	}
	if filter.Urgency != "" {
		query += ` AND urgency_level = ?`
		args = append(args, string(filter.Urgency))
	}
	if filter.EmailSent != nil {
		query += ` AND email_sent = ?`
		args = append(args, *filter.EmailSent)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reviews")
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		r, err := scanSQLiteReview(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review")
		}
		reviews = append(reviews, *r)
	}
	return reviews, eris.Wrap(rows.Err(), "sqlite: list reviews iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.ReviewStats, error) {
	stats := newReviewStats()

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN email_sent THEN 1 ELSE 0 END), 0), COALESCE(SUM(CASE WHEN ai_processed THEN 1 ELSE 0 END), 0) FROM reviews`,
	).Scan(&stats.TotalReviews, &stats.EmailsSent, &stats.AIProcessed)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats totals")
	}

	if err := s.statsBreakdown(ctx, `SELECT sentiment, COUNT(*) FROM reviews GROUP BY sentiment`, func(key string, n int) {
		stats.SentimentBreakdown[model.Sentiment(key)] = n
	}); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats sentiment")
	}
	if err := s.statsBreakdown(ctx, `SELECT urgency_level, COUNT(*) FROM reviews GROUP BY urgency_level`, func(key string, n int) {
		stats.UrgencyBreakdown[model.UrgencyLevel(key)] = n
	}); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats urgency")
	}

	if stats.TotalReviews > 0 {
		stats.ProcessingRate = float64(stats.AIProcessed) / float64(stats.TotalReviews)
	}
	return stats, nil
}

func (s *SQLiteStore) statsBreakdown(ctx context.Context, query string, set func(key string, n int)) error {
	rows, err := s.db.QueryContext(ctx, query)
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

func scanSQLiteReview(row rowScanner) (*model.Review, error) {
	var r model.Review
	var categoriesJSON, keyIssuesJSON string
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

	if err := json.Unmarshal([]byte(categoriesJSON), &r.Categories); err != nil {
		return nil, eris.Wrap(err, "unmarshal categories")
	}
	if err := json.Unmarshal([]byte(keyIssuesJSON), &r.KeyIssues); err != nil {
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
