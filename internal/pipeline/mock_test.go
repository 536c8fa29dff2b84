package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/feedback-cli/internal/config"
	"github.com/sells-group/feedback-cli/internal/mailer"
	"github.com/sells-group/feedback-cli/pkg/anthropic"
)

// Compile-time interface checks.
var (
	_ Gateway          = (*mockGateway)(nil)
	_ mailer.Transport = (*mockTransport)(nil)
	_ anthropic.Client = (*mockAnthropicClient)(nil)
)

// --- Gateway Mock ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Infer(ctx context.Context, stage, system, user string, out any) error {
	args := m.Called(ctx, stage, system, user, out)
	return args.Error(0)
}

// --- Transport Mock ---

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

func (m *mockTransport) Verify(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Anthropic Client Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// testConfig returns a config with the default AND email rule.
func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			Model:     "claude-haiku-4-5-20251001",
			MaxTokens: 1024,
		},
		SMTP: config.SMTPConfig{FromName: "Customer Care"},
		Business: config.BusinessConfig{
			Name:  "Harbor Bistro",
			Phone: "555-0142",
			Email: "care@harborbistro.example",
		},
		Pipeline: config.PipelineConfig{EmailRule: "and"},
	}
}
