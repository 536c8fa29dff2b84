package pipeline

import (
	"github.com/sells-group/feedback-cli/internal/model"
)

// EmailRule is the boolean combinator joining sentiment and urgency in
// the follow-up decision.
type EmailRule string

const (
	// EmailRuleAnd contacts only customers whose review is negative AND
	// at least medium urgency. This is the default.
	EmailRuleAnd EmailRule = "and"
	// EmailRuleOr also contacts customers for any medium-or-higher
	// urgency review regardless of sentiment.
	EmailRuleOr EmailRule = "or"
)

// decideEmailAction computes the follow-up decision from sentiment and
// urgency. Pure logic, no inference call; this is the pipeline's only
// branch point.
func (p *Pipeline) decideEmailAction(st *State) {
	negative := st.Sentiment == model.SentimentNegative
	urgent := st.UrgencyLevel.Rank() >= model.UrgencyMedium.Rank()

	switch p.rule {
	case EmailRuleOr:
		st.ShouldSendEmail = negative || urgent
	default:
		st.ShouldSendEmail = negative && urgent
	}

	if !st.ShouldSendEmail {
		st.EmailTemplate = nil
		return
	}

	st.EmailTemplate = templateFor(st.UrgencyLevel, st.Categories)
}

// templateFor selects the email template by first-match priority, most
// specific first: critical > quality > service > delivery > support >
// general.
func templateFor(urgency model.UrgencyLevel, cats []model.Category) *model.EmailTemplate {
	pick := func(t model.EmailTemplate) *model.EmailTemplate { return &t }

	switch {
	case urgency == model.UrgencyCritical:
		return pick(model.TemplateCriticalResponse)
	case model.ContainsCategory(cats, model.CategoryQuality):
		return pick(model.TemplateQualityConcern)
	case model.ContainsCategory(cats, model.CategoryService):
		return pick(model.TemplateServiceConcern)
	case model.ContainsCategory(cats, model.CategoryDelivery):
		return pick(model.TemplateDeliveryConcern)
	case model.ContainsCategory(cats, model.CategorySupport):
		return pick(model.TemplateSupportConcern)
	default:
		return pick(model.TemplateGeneralConcern)
	}
}
