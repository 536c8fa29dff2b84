package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/feedback-cli/internal/mailer"
	"github.com/sells-group/feedback-cli/internal/pipeline"
	"github.com/sells-group/feedback-cli/internal/store"
	anthropicpkg "github.com/sells-group/feedback-cli/pkg/anthropic"
)

// offline skips real API clients and uses canned responses. Set by the
// --offline flag on commands that support it.
var offline bool

// pipelineEnv holds the initialized store, transport, and pipeline
// shared by the run/batch/serve commands.
type pipelineEnv struct {
	Store     store.Store
	Pipeline  *pipeline.Pipeline
	Gateway   pipeline.Gateway
	Transport mailer.Transport
	Dispatch  bool
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// PipelineFor returns the shared pipeline, or a variant with email
// dispatch toggled when a caller overrides the configured default.
func (pe *pipelineEnv) PipelineFor(dispatch bool) *pipeline.Pipeline {
	if dispatch == pe.Dispatch {
		return pe.Pipeline
	}
	return pipeline.New(cfg, pe.Gateway, pe.Transport, dispatch)
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "feedback.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline sets up the store, the inference gateway, and the email
// transport, then builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	dispatch := cfg.Pipeline.SendEmails

	if !offline {
		mode := "analysis"
		if dispatch {
			mode = "email"
		}
		if err := cfg.Validate(mode); err != nil {
			return nil, err
		}
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var gateway pipeline.Gateway
	var transport mailer.Transport

	if offline {
		zap.L().Warn("offline mode, using canned inference responses")
		gateway = &pipeline.StubGateway{}
		transport = &pipeline.StubTransport{}
	} else {
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		gateway = pipeline.NewGateway(client, cfg.Anthropic)

		// Build the SMTP transport whenever credentials exist so a
		// per-request dispatch override can still deliver.
		if cfg.SMTP.Host != "" {
			transport = mailer.NewSMTP(cfg.SMTP)
		} else {
			transport = mailer.Disabled{}
		}
		if !dispatch {
			zap.L().Info("email dispatch disabled, analysis only")
		}
	}

	p := pipeline.New(cfg, gateway, transport, dispatch)

	return &pipelineEnv{
		Store:     st,
		Pipeline:  p,
		Gateway:   gateway,
		Transport: transport,
		Dispatch:  dispatch,
	}, nil
}
