package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/feedback-cli/internal/mailer"
)

// Compile-time interface checks.
var (
	_ Gateway          = (*StubGateway)(nil)
	_ mailer.Transport = (*StubTransport)(nil)
)

// StubGateway implements Gateway with canned per-stage responses for
// offline runs and deterministic tests.
type StubGateway struct {
	// Responses overrides the canned JSON per stage name when set.
	Responses map[string]string
}

var stubResponses = map[string]string{
	"sentiment":  `{"sentiment": "negative", "confidence": 0.9, "reasoning": "stub"}`,
	"categorize": `{"categories": ["service"], "key_issues": ["slow response"]}`,
	"urgency":    `{"urgency_level": "medium", "reasoning": "stub"}`,
	"draft":      `{"subject": "Following up on your recent experience", "body": "stub body"}`,
}

// Infer implements Gateway.
func (s *StubGateway) Infer(_ context.Context, stage, _, _ string, out any) error {
	raw, ok := stubResponses[stage]
	if s.Responses != nil {
		if override, found := s.Responses[stage]; found {
			raw, ok = override, true
		}
	}
	if !ok {
		return eris.Errorf("stub gateway: unknown stage %s", stage)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return eris.Wrapf(ErrSchemaViolation, "stub gateway: %s: %v", stage, err)
	}
	return nil
}

// StubTransport implements mailer.Transport, recording sends without
// touching the network.
type StubTransport struct {
	Sent []StubDelivery
}

// StubDelivery captures one recorded send.
type StubDelivery struct {
	To      string
	Subject string
	Body    string
}

// Send implements mailer.Transport.
func (s *StubTransport) Send(_ context.Context, to, subject, body string) error {
	s.Sent = append(s.Sent, StubDelivery{To: to, Subject: subject, Body: body})
	return nil
}

// Verify implements mailer.Transport.
func (s *StubTransport) Verify(context.Context) error { return nil }
