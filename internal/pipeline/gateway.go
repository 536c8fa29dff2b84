package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/feedback-cli/internal/config"
	"github.com/sells-group/feedback-cli/pkg/anthropic"
)

// ErrSchemaViolation marks inference output that could not be parsed
// into the requested schema. Stages treat it the same as a transport
// failure: record the message, apply the field default, continue.
var ErrSchemaViolation = eris.New("inference output violates schema")

// Gateway is the abstraction over the structured-output model call.
// Implementations must be safe for concurrent use; a single handle is
// constructed at process start and shared by all invocations.
type Gateway interface {
	// Infer sends a system directive and user content to the model and
	// unmarshals the structured response into out.
	Infer(ctx context.Context, stage, system, user string, out any) error
}

// anthropicGateway implements Gateway on the Anthropic messages API
// with a shared rate limiter across invocations.
type anthropicGateway struct {
	client  anthropic.Client
	cfg     config.AnthropicConfig
	limiter *rate.Limiter
}

// NewGateway creates the Anthropic-backed inference gateway.
func NewGateway(client anthropic.Client, cfg config.AnthropicConfig) Gateway {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &anthropicGateway{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (g *anthropicGateway) Infer(ctx context.Context, stage, system, user string, out any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "gateway: rate limit wait")
	}

	temp := g.cfg.Temperature
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	})
	if err != nil {
		return eris.Wrapf(err, "gateway: %s", stage)
	}
	resp.Usage.LogCost(g.cfg.Model, stage)

	text := cleanJSON(extractText(resp))
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return eris.Wrapf(ErrSchemaViolation, "gateway: %s: %v", stage, err)
	}
	return nil
}
