package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/feedback-cli/internal/model"
	"github.com/sells-group/feedback-cli/internal/pipeline"
)

var (
	runName      string
	runEmail     string
	runText      string
	runRating    int
	runSendEmail bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze a single customer review",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if runSendEmail {
			cfg.Pipeline.SendEmails = true
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		in := pipeline.Input{
			ReviewText:    runText,
			CustomerName:  runName,
			CustomerEmail: runEmail,
		}
		if cmd.Flags().Changed("rating") {
			in.Rating = &runRating
		}

		analysis, err := env.Pipeline.Run(ctx, in)
		if err != nil {
			return eris.Wrap(err, "analyze review")
		}

		review := model.NewReview(in.CustomerName, in.CustomerEmail, in.ReviewText, in.Rating, analysis)
		stored, err := env.Store.UpsertReview(ctx, review)
		if err != nil {
			return eris.Wrap(err, "store review")
		}

		zap.L().Info("analysis stored",
			zap.String("id", stored.ID),
			zap.String("sentiment", string(analysis.Sentiment)),
			zap.String("urgency", string(analysis.UrgencyLevel)),
			zap.Bool("email_sent", analysis.EmailSent),
		)

		// Print result JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	},
}

func init() {
	runCmd.Flags().StringVar(&runName, "name", "", "customer name (required)")
	runCmd.Flags().StringVar(&runEmail, "email", "", "customer email (required)")
	runCmd.Flags().StringVar(&runText, "text", "", "review text (required)")
	runCmd.Flags().IntVar(&runRating, "rating", 0, "star rating 1-5")
	runCmd.Flags().BoolVar(&runSendEmail, "send-email", false, "send the follow-up email if the analysis warrants one")
	runCmd.Flags().BoolVar(&offline, "offline", false, "use canned responses instead of API calls")
	_ = runCmd.MarkFlagRequired("name")
	_ = runCmd.MarkFlagRequired("email")
	_ = runCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(runCmd)
}
