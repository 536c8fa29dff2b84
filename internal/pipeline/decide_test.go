package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/feedback-cli/internal/model"
)

func TestDecideEmailAction_Rules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		rule      EmailRule
		sentiment model.Sentiment
		urgency   model.UrgencyLevel
		want      bool
	}{
		{"and: negative and medium", EmailRuleAnd, model.SentimentNegative, model.UrgencyMedium, true},
		{"and: negative and critical", EmailRuleAnd, model.SentimentNegative, model.UrgencyCritical, true},
		{"and: negative but low", EmailRuleAnd, model.SentimentNegative, model.UrgencyLow, false},
		{"and: neutral at high", EmailRuleAnd, model.SentimentNeutral, model.UrgencyHigh, false},
		{"and: positive at critical", EmailRuleAnd, model.SentimentPositive, model.UrgencyCritical, false},
		{"or: negative but low", EmailRuleOr, model.SentimentNegative, model.UrgencyLow, true},
		{"or: neutral at high", EmailRuleOr, model.SentimentNeutral, model.UrgencyHigh, true},
		{"or: positive and low", EmailRuleOr, model.SentimentPositive, model.UrgencyLow, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := &Pipeline{rule: tc.rule}
			st := &State{Sentiment: tc.sentiment, UrgencyLevel: tc.urgency}
			p.decideEmailAction(st)

			assert.Equal(t, tc.want, st.ShouldSendEmail)
			if tc.want {
				assert.NotNil(t, st.EmailTemplate)
			} else {
				assert.Nil(t, st.EmailTemplate)
			}
		})
	}
}

func TestTemplateFor_Priority(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		urgency model.UrgencyLevel
		cats    []model.Category
		want    model.EmailTemplate
	}{
		{"critical beats categories", model.UrgencyCritical, []model.Category{model.CategoryService}, model.TemplateCriticalResponse},
		{"quality beats service", model.UrgencyHigh, []model.Category{model.CategoryService, model.CategoryQuality}, model.TemplateQualityConcern},
		{"service beats delivery", model.UrgencyMedium, []model.Category{model.CategoryDelivery, model.CategoryService}, model.TemplateServiceConcern},
		{"delivery beats support", model.UrgencyMedium, []model.Category{model.CategorySupport, model.CategoryDelivery}, model.TemplateDeliveryConcern},
		{"support alone", model.UrgencyMedium, []model.Category{model.CategorySupport}, model.TemplateSupportConcern},
		{"unmatched falls back to general", model.UrgencyMedium, []model.Category{model.CategoryPricing}, model.TemplateGeneralConcern},
		{"no categories", model.UrgencyHigh, nil, model.TemplateGeneralConcern},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := templateFor(tc.urgency, tc.cats)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got)
		})
	}
}
