package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/feedback-cli/internal/ingest"
	"github.com/sells-group/feedback-cli/internal/model"
	"github.com/sells-group/feedback-cli/internal/pipeline"
	"github.com/sells-group/feedback-cli/internal/store"
)

var (
	batchFile        string
	batchLimit       int
	batchConcurrency int
	batchSendEmails  bool
	batchDryRun      bool
	batchOutput      string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze reviews from an XLSX or CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchSendEmails {
			cfg.Pipeline.SendEmails = true
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := ingest.ReadFile(batchFile)
		if err != nil {
			return eris.Wrap(err, "read review file")
		}
		for _, rowErr := range result.Errors {
			zap.L().Warn("skipping bad row",
				zap.Int("line", rowErr.Line),
				zap.String("reason", rowErr.Reason),
			)
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentReviews
		}

		summary, err := processBatch(ctx, result.Rows, batchLimit, concurrency, batchDryRun, env.Store, env.Pipeline.Run)
		if err != nil {
			return err
		}

		zap.L().Info("batch complete",
			zap.Int("analyzed", summary.Analyzed),
			zap.Int("stored", summary.Stored),
			zap.Int("failed", summary.Failed),
			zap.Int("emails_sent", summary.EmailsSent),
			zap.Int("skipped_rows", len(result.Errors)),
			zap.Int("positive", summary.Sentiments[model.SentimentPositive]),
			zap.Int("negative", summary.Sentiments[model.SentimentNegative]),
			zap.Int("neutral", summary.Sentiments[model.SentimentNeutral]),
		)

		if batchOutput != "" {
			data, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal batch summary")
			}
			if err := os.WriteFile(batchOutput, data, 0o644); err != nil {
				return eris.Wrap(err, "write batch summary")
			}
			zap.L().Info("summary written", zap.String("path", batchOutput))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "path to .xlsx or .csv review file (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of rows to process (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent analyses (default from config)")
	batchCmd.Flags().BoolVar(&batchSendEmails, "send-emails", false, "send follow-up emails for reviews that warrant one")
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "analyze without persisting results")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write the summary JSON to this path")
	batchCmd.Flags().BoolVar(&offline, "offline", false, "use canned responses instead of API calls")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// analyzeFunc is the callback signature for running analysis on one review.
type analyzeFunc func(ctx context.Context, in pipeline.Input) (*model.Analysis, error)

// batchSummary reports the outcome of one batch run.
type batchSummary struct {
	Analyzed   int                     `json:"analyzed"`
	Stored     int                     `json:"stored"`
	Failed     int                     `json:"failed"`
	EmailsSent int                     `json:"emails_sent"`
	Sentiments map[model.Sentiment]int `json:"sentiment_breakdown"`
}

// processBatch applies limit, analyzes rows concurrently, and persists
// all results in one bulk upsert. Individual failures never abort the
// batch; only invalid input rows count as failed. dryRun skips the
// persistence step.
func processBatch(ctx context.Context, rows []ingest.Row, limit, concurrency int, dryRun bool, st store.Store, analyze analyzeFunc) (*batchSummary, error) {
	summary := &batchSummary{Sentiments: make(map[model.Sentiment]int)}
	for _, s := range model.AllSentiments() {
		summary.Sentiments[s] = 0
	}
	if len(rows) == 0 {
		zap.L().Info("no reviews to process")
		return summary, nil
	}

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("reviews", len(rows)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	var reviews []*model.Review
	var emailsSent, failed atomic.Int64
	sentiments := make(map[model.Sentiment]*atomic.Int64)
	for _, s := range model.AllSentiments() {
		sentiments[s] = &atomic.Int64{}
	}

	for _, row := range rows {
		g.Go(func() error {
			log := zap.L().With(
				zap.Int("line", row.Line),
				zap.String("email", row.CustomerEmail),
			)

			analysis, err := analyze(gctx, pipeline.Input{
				ReviewText:    row.ReviewText,
				CustomerName:  row.CustomerName,
				CustomerEmail: row.CustomerEmail,
				Rating:        row.Rating,
			})
			if err != nil {
				failed.Add(1)
				log.Error("analysis failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			if counter, ok := sentiments[analysis.Sentiment]; ok {
				counter.Add(1)
			}
			if analysis.EmailSent {
				emailsSent.Add(1)
			}

			review := model.NewReview(row.CustomerName, row.CustomerEmail, row.ReviewText, row.Rating, analysis)
			mu.Lock()
			reviews = append(reviews, review)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch processing")
	}

	if !dryRun {
		n, err := st.UpsertReviews(ctx, dedupeByEmail(reviews))
		if err != nil {
			return nil, eris.Wrap(err, "persist batch results")
		}
		summary.Stored = n
	}

	summary.Analyzed = len(reviews)
	summary.Failed = int(failed.Load())
	summary.EmailsSent = int(emailsSent.Load())
	for s, counter := range sentiments {
		summary.Sentiments[s] = int(counter.Load())
	}
	return summary, nil
}

// dedupeByEmail keeps the last analysis per customer so the bulk upsert
// never writes two rows with the same conflict key.
func dedupeByEmail(reviews []*model.Review) []*model.Review {
	seen := make(map[string]int, len(reviews))
	out := make([]*model.Review, 0, len(reviews))
	for _, r := range reviews {
		if idx, ok := seen[r.CustomerEmail]; ok {
			out[idx] = r
			continue
		}
		seen[r.CustomerEmail] = len(out)
		out = append(out, r)
	}
	return out
}
