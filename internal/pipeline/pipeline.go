package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/feedback-cli/internal/config"
	"github.com/sells-group/feedback-cli/internal/mailer"
	"github.com/sells-group/feedback-cli/internal/model"
)

// Pipeline runs the multi-stage review analysis: sentiment →
// categorization → urgency → email decision → (conditional) draft and
// dispatch. Stages execute in fixed order; no stage failure aborts the
// run. Safe for concurrent use; each invocation owns its own State.
type Pipeline struct {
	gateway      Gateway
	transport    mailer.Transport
	rule         EmailRule
	dispatch     bool
	business     config.BusinessConfig
	smtpFromName string
}

// New wires a Pipeline from explicit dependencies. dispatch controls
// whether the drafting stage runs at all; when false a positive email
// decision is recorded but no email is generated or sent.
func New(cfg *config.Config, gw Gateway, transport mailer.Transport, dispatch bool) *Pipeline {
	return &Pipeline{
		gateway:      gw,
		transport:    transport,
		rule:         EmailRule(cfg.Pipeline.EmailRule),
		dispatch:     dispatch,
		business:     cfg.Business,
		smtpFromName: cfg.SMTP.FromName,
	}
}

// Run executes the pipeline for one review. It returns an error only
// for invalid caller input; collaborator failures degrade individual
// fields and are reported through Analysis.Error instead.
func (p *Pipeline) Run(ctx context.Context, in Input) (*model.Analysis, error) {
	if err := in.Validate(); err != nil {
		return nil, eris.Wrap(err, "pipeline: invalid input")
	}

	log := zap.L().With(
		zap.String("customer", in.CustomerName),
		zap.String("email", in.CustomerEmail),
	)
	log.Info("pipeline: starting analysis")

	st := newState(in)

	p.stage(ctx, log, "sentiment", func() error { return p.assessSentiment(ctx, st) })
	p.stage(ctx, log, "categorize", func() error { return p.categorizeIssues(ctx, st) })
	p.stage(ctx, log, "urgency", func() error { return p.assessUrgency(ctx, st) })
	p.stage(ctx, log, "decide", func() error {
		p.decideEmailAction(st)
		return nil
	})

	if st.ShouldSendEmail && p.dispatch {
		p.stage(ctx, log, "draft", func() error { return p.draftEmail(ctx, st) })
	} else if st.ShouldSendEmail {
		log.Info("pipeline: email dispatch disabled, skipping draft",
			zap.String("template", string(*st.EmailTemplate)))
	}

	st.AnalysisComplete = true

	log.Info("pipeline: analysis complete",
		zap.String("sentiment", string(st.Sentiment)),
		zap.String("urgency", string(st.UrgencyLevel)),
		zap.Bool("should_send_email", st.ShouldSendEmail),
		zap.Bool("email_sent", st.EmailSent),
	)

	return st.analysis(), nil
}

// stage times one stage and logs its outcome. Stage errors are already
// absorbed into the state by the stage itself; they are logged here and
// dropped.
func (p *Pipeline) stage(_ context.Context, log *zap.Logger, name string, fn func() error) {
	start := time.Now()
	err := fn()
	duration := time.Since(start).Milliseconds()

	if err != nil {
		log.Warn("pipeline: stage degraded",
			zap.String("stage", name),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
		return
	}
	log.Debug("pipeline: stage complete",
		zap.String("stage", name),
		zap.Int64("duration_ms", duration),
	)
}
