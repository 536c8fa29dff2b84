package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/feedback-cli/internal/mailer"
)

const draftSystem = `You are writing a follow-up email on behalf of %s to a customer who left a review.

Tone: %s

The email must:
%s

Write in plain text, no markdown. Sign off as %s, %s. Include the contact phone %s where a contact channel is called for.

Return your response in this JSON format:
{
  "subject": "email subject line",
  "body": "full email body"
}`

const draftUser = `Customer: %s
Sentiment: %s
Urgency: %s
Key issues raised:
%s

Original review:
%s`

// draftEmail generates the follow-up email and hands it to the
// transport. EmailSent reflects the transport result only; a generation
// or delivery failure leaves it false and records the error.
func (p *Pipeline) draftEmail(ctx context.Context, st *State) error {
	if st.EmailTemplate == nil {
		// decideEmailAction guarantees a template when the branch is
		// taken; guard anyway so a broken caller cannot panic us.
		st.Err = "email drafting error: no template selected"
		return fmt.Errorf("no template selected")
	}

	guide, err := mailer.Guidelines(*st.EmailTemplate)
	if err != nil {
		st.Err = fmt.Sprintf("email drafting error: %v", err)
		return err
	}

	directives := make([]string, len(guide.Directives))
	for i, d := range guide.Directives {
		directives[i] = "- " + d
	}

	issues := "- (none listed)"
	if len(st.KeyIssues) > 0 {
		issues = "- " + strings.Join(st.KeyIssues, "\n- ")
	}

	var out struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	err = p.gateway.Infer(ctx, "draft",
		fmt.Sprintf(draftSystem,
			p.business.Name,
			guide.Tone,
			strings.Join(directives, "\n"),
			p.business.Name, p.smtpFromName, p.business.Phone,
		),
		fmt.Sprintf(draftUser,
			st.CustomerName, st.Sentiment, st.UrgencyLevel, issues, st.ReviewText,
		),
		&out,
	)
	if err == nil && (out.Subject == "" || out.Body == "") {
		err = fmt.Errorf("empty subject or body: %w", ErrSchemaViolation)
	}
	if err != nil {
		st.Err = fmt.Sprintf("email drafting error: %v", err)
		st.EmailSent = false
		return err
	}

	if err := p.transport.Send(ctx, st.CustomerEmail, out.Subject, out.Body); err != nil {
		st.Err = fmt.Sprintf("email delivery error: %v", err)
		st.EmailSent = false
		return err
	}

	st.EmailSent = true
	return nil
}
