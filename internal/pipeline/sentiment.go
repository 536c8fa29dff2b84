package pipeline

import (
	"context"
	"fmt"

	"github.com/sells-group/feedback-cli/internal/model"
)

const sentimentSystem = `You are an expert at analyzing customer review sentiment across all industries and business types.

Analyze the sentiment of the review and provide:
1. Overall sentiment: positive, negative, or neutral
2. Confidence score (0.0 to 1.0)
3. Brief reasoning

Return your response in this JSON format:
{
  "sentiment": "positive|negative|neutral",
  "confidence": 0.85,
  "reasoning": "Brief explanation of your analysis"
}`

const sentimentUser = `Review to analyze:
Customer: %s
Rating: %s/5
Review: %s`

// assessSentiment writes Sentiment and SentimentScore. On any failure
// the review is treated as neutral with zero confidence and the run
// continues.
func (p *Pipeline) assessSentiment(ctx context.Context, st *State) error {
	rating := "Not provided"
	if st.Rating != nil {
		rating = fmt.Sprintf("%d", *st.Rating)
	}

	var out struct {
		Sentiment  string  `json:"sentiment"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	err := p.gateway.Infer(ctx, "sentiment",
		sentimentSystem,
		fmt.Sprintf(sentimentUser, st.CustomerName, rating, st.ReviewText),
		&out,
	)
	if err == nil && !model.ValidSentiment(model.Sentiment(out.Sentiment)) {
		err = fmt.Errorf("sentiment %q outside vocabulary: %w", out.Sentiment, ErrSchemaViolation)
	}
	if err != nil {
		st.Err = fmt.Sprintf("sentiment analysis error: %v", err)
		st.Sentiment = model.SentimentNeutral
		st.SentimentScore = 0.0
		return err
	}

	st.Sentiment = model.Sentiment(out.Sentiment)
	st.SentimentScore = clampScore(out.Confidence)
	return nil
}

// clampScore bounds a confidence value to [0.0, 1.0].
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
