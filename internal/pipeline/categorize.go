package pipeline

import (
	"context"
	"fmt"

	"github.com/sells-group/feedback-cli/internal/model"
)

const categorizeSystem = `You are an expert at categorizing customer feedback across all industries and business types.

Analyze the review and identify which categories apply. The categories are universal and can apply to any business:
- quality: Issues with product/service quality, defects, or standards
- service: Customer service, staff behavior, responsiveness
- pricing: Cost concerns, value for money, billing issues
- delivery: Shipping, logistics, timing, fulfillment
- usability: Ease of use, user interface, accessibility
- communication: Information clarity, updates, transparency
- performance: Speed, reliability, functionality, uptime
- support: Help resources, documentation, technical assistance
- experience: Overall customer journey, satisfaction, emotions
- other: Issues that don't fit the above categories

Also extract the key specific issues mentioned.

Return your response in this JSON format:
{
  "categories": ["category1", "category2"],
  "key_issues": ["specific issue 1", "specific issue 2"]
}`

const categorizeUser = `Review to categorize:
%s
Sentiment: %s`

// categorizeIssues writes Categories and KeyIssues. Tags outside the
// closed vocabulary are rejected at the schema boundary; if nothing
// valid remains the review is filed under "other".
func (p *Pipeline) categorizeIssues(ctx context.Context, st *State) error {
	var out struct {
		Categories []string `json:"categories"`
		KeyIssues  []string `json:"key_issues"`
	}
	err := p.gateway.Infer(ctx, "categorize",
		categorizeSystem,
		fmt.Sprintf(categorizeUser, st.ReviewText, st.Sentiment),
		&out,
	)
	if err != nil {
		st.Err = fmt.Sprintf("categorization error: %v", err)
		st.Categories = []model.Category{model.CategoryOther}
		st.KeyIssues = []string{}
		return err
	}

	var cats []model.Category
	for _, raw := range out.Categories {
		c := model.Category(raw)
		if model.ValidCategory(c) && !model.ContainsCategory(cats, c) {
			cats = append(cats, c)
		}
	}
	if len(cats) == 0 {
		cats = []model.Category{model.CategoryOther}
	}

	st.Categories = cats
	st.KeyIssues = out.KeyIssues
	if st.KeyIssues == nil {
		st.KeyIssues = []string{}
	}
	return nil
}
