package model

import (
	"strings"
	"time"
)

// Sentiment represents the overall tone of a review.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// AllSentiments returns all defined sentiments.
func AllSentiments() []Sentiment {
	return []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}
}

// ValidSentiment reports whether s is a member of the closed vocabulary.
func ValidSentiment(s Sentiment) bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// UrgencyLevel is the triage priority assigned to a review.
// Levels are ordinal: low < medium < high < critical.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// AllUrgencyLevels returns all defined urgency levels in ascending order.
func AllUrgencyLevels() []UrgencyLevel {
	return []UrgencyLevel{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}
}

// ValidUrgency reports whether u is a member of the closed vocabulary.
func ValidUrgency(u UrgencyLevel) bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// Rank returns the ordinal position of the urgency level (low=0 ... critical=3).
// Unknown levels rank below low.
func (u UrgencyLevel) Rank() int {
	switch u {
	case UrgencyLow:
		return 0
	case UrgencyMedium:
		return 1
	case UrgencyHigh:
		return 2
	case UrgencyCritical:
		return 3
	}
	return -1
}

// Category is one tag from the closed issue-classification vocabulary.
// Categories are not mutually exclusive.
type Category string

const (
	CategoryQuality       Category = "quality"
	CategoryService       Category = "service"
	CategoryPricing       Category = "pricing"
	CategoryDelivery      Category = "delivery"
	CategoryUsability     Category = "usability"
	CategoryCommunication Category = "communication"
	CategoryPerformance   Category = "performance"
	CategorySupport       Category = "support"
	CategoryExperience    Category = "experience"
	CategoryOther         Category = "other"
)

// AllCategories returns all defined categories.
func AllCategories() []Category {
	return []Category{
		CategoryQuality,
		CategoryService,
		CategoryPricing,
		CategoryDelivery,
		CategoryUsability,
		CategoryCommunication,
		CategoryPerformance,
		CategorySupport,
		CategoryExperience,
		CategoryOther,
	}
}

// ValidCategory reports whether c is a member of the closed vocabulary.
func ValidCategory(c Category) bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// ContainsCategory reports whether cats includes c.
func ContainsCategory(cats []Category, c Category) bool {
	for _, cat := range cats {
		if cat == c {
			return true
		}
	}
	return false
}

// EmailTemplate selects tone and content directives for a drafted
// follow-up email.
type EmailTemplate string

const (
	TemplateCriticalResponse EmailTemplate = "critical_response"
	TemplateQualityConcern   EmailTemplate = "quality_concern"
	TemplateServiceConcern   EmailTemplate = "service_concern"
	TemplateDeliveryConcern  EmailTemplate = "delivery_concern"
	TemplateSupportConcern   EmailTemplate = "support_concern"
	TemplateGeneralConcern   EmailTemplate = "general_concern"
)

// AllEmailTemplates returns all defined template tags.
func AllEmailTemplates() []EmailTemplate {
	return []EmailTemplate{
		TemplateCriticalResponse,
		TemplateQualityConcern,
		TemplateServiceConcern,
		TemplateDeliveryConcern,
		TemplateSupportConcern,
		TemplateGeneralConcern,
	}
}

// Analysis is the structured assessment produced by one pipeline run.
// Every field is populated on every run; Error signals degraded
// confidence in specific fields without invalidating the rest.
type Analysis struct {
	Sentiment        Sentiment      `json:"sentiment"`
	SentimentScore   float64        `json:"sentiment_score"`
	UrgencyLevel     UrgencyLevel   `json:"urgency_level"`
	Categories       []Category     `json:"categories"`
	KeyIssues        []string       `json:"key_issues"`
	ShouldSendEmail  bool           `json:"should_send_email"`
	EmailTemplate    *EmailTemplate `json:"email_template,omitempty"`
	EmailSent        bool           `json:"email_sent"`
	AnalysisComplete bool           `json:"analysis_complete"`
	Error            string         `json:"error,omitempty"`
}

// Review is the persisted record for one customer, keyed by email.
// A later review from the same customer replaces the previous analysis.
type Review struct {
	ID             string         `json:"id"`
	CustomerName   string         `json:"customer_name"`
	CustomerEmail  string         `json:"customer_email"`
	ReviewText     string         `json:"review_text"`
	Rating         *int           `json:"rating,omitempty"`
	Sentiment      Sentiment      `json:"sentiment"`
	SentimentScore float64        `json:"sentiment_score"`
	UrgencyLevel   UrgencyLevel   `json:"urgency_level"`
	Categories     []Category     `json:"categories"`
	KeyIssues      []string       `json:"key_issues"`
	AIProcessed    bool           `json:"ai_processed"`
	AIError        string         `json:"ai_processing_error,omitempty"`
	EmailSent      bool           `json:"email_sent"`
	EmailTemplate  *EmailTemplate `json:"email_template,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewReview builds a Review from caller input and a completed Analysis.
// The email is lowercased; it is the upsert conflict key.
func NewReview(name, email, text string, rating *int, a *Analysis) *Review {
	now := time.Now().UTC()
	return &Review{
		CustomerName:   name,
		CustomerEmail:  strings.ToLower(email),
		ReviewText:     text,
		Rating:         rating,
		Sentiment:      a.Sentiment,
		SentimentScore: a.SentimentScore,
		UrgencyLevel:   a.UrgencyLevel,
		Categories:     a.Categories,
		KeyIssues:      a.KeyIssues,
		AIProcessed:    a.AnalysisComplete,
		AIError:        a.Error,
		EmailSent:      a.EmailSent,
		EmailTemplate:  a.EmailTemplate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ReviewStats aggregates dashboard analytics across all stored reviews.
type ReviewStats struct {
	TotalReviews       int                  `json:"total_reviews"`
	SentimentBreakdown map[Sentiment]int    `json:"sentiment_breakdown"`
	UrgencyBreakdown   map[UrgencyLevel]int `json:"urgency_breakdown"`
	EmailsSent         int                  `json:"emails_sent"`
	AIProcessed        int                  `json:"ai_processed"`
	ProcessingRate     float64              `json:"processing_rate"`
}

// ReviewFilter specifies criteria for listing reviews.
type ReviewFilter struct {
	Sentiment Sentiment    `json:"sentiment,omitempty"`
	Urgency   UrgencyLevel `json:"urgency,omitempty"`
	EmailSent *bool        `json:"email_sent,omitempty"`
	Limit     int          `json:"limit,omitempty"`
	Offset    int          `json:"offset,omitempty"`
}
