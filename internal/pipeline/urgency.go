package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/feedback-cli/internal/model"
)

const urgencySystem = `You are an expert at assessing the urgency of customer feedback across all industries.

Based on the review sentiment, issues, and context, determine the urgency level:
- critical: Safety concerns, security issues, extremely angry customers, potential legal/PR issues, service outages
- high: Very unsatisfied customers, multiple serious issues, loss of functionality, demand immediate attention
- medium: Moderately unsatisfied, specific fixable issues, feature requests, minor bugs
- low: Minor issues, positive feedback with suggestions, general improvements

Return your response in this JSON format:
{
  "urgency_level": "critical|high|medium|low",
  "reasoning": "Brief explanation for the urgency level"
}`

const urgencyUser = `Review Analysis:
Sentiment: %s (confidence: %.2f)
Categories: %s
Key Issues: %s
Original Review: %s`

// assessUrgency writes UrgencyLevel. The reasoning field is required by
// the output schema but discarded; it keeps the model anchored to the
// closed vocabulary. Failure defaults to medium.
func (p *Pipeline) assessUrgency(ctx context.Context, st *State) error {
	cats := make([]string, len(st.Categories))
	for i, c := range st.Categories {
		cats[i] = string(c)
	}

	var out struct {
		UrgencyLevel string `json:"urgency_level"`
		Reasoning    string `json:"reasoning"`
	}
	err := p.gateway.Infer(ctx, "urgency",
		urgencySystem,
		fmt.Sprintf(urgencyUser,
			st.Sentiment, st.SentimentScore,
			strings.Join(cats, ", "),
			strings.Join(st.KeyIssues, ", "),
			st.ReviewText,
		),
		&out,
	)
	if err == nil && !model.ValidUrgency(model.UrgencyLevel(out.UrgencyLevel)) {
		err = fmt.Errorf("urgency %q outside vocabulary: %w", out.UrgencyLevel, ErrSchemaViolation)
	}
	if err != nil {
		st.Err = fmt.Sprintf("urgency determination error: %v", err)
		st.UrgencyLevel = model.UrgencyMedium
		return err
	}

	st.UrgencyLevel = model.UrgencyLevel(out.UrgencyLevel)
	return nil
}
