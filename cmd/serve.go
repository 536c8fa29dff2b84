package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/feedback-cli/internal/ingest"
	"github.com/sells-group/feedback-cli/internal/model"
	"github.com/sells-group/feedback-cli/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review analysis HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&offline, "offline", false, "use canned responses instead of API calls")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the chi router for the review API.
func newRouter(env *pipelineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/reviews", handleCreateReview(env))
		r.Get("/reviews", handleListReviews(env))
		r.Post("/reviews/upload", handleUploadReviews(env))
		r.Get("/analytics/dashboard", handleDashboard(env))
		r.Post("/email/test", handleEmailTest(env))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func handleCreateReview(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CustomerName  string `json:"customer_name"`
			CustomerEmail string `json:"customer_email"`
			ReviewText    string `json:"review_text"`
			Rating        *int   `json:"rating"`
			SendEmail     *bool  `json:"send_email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		in := pipeline.Input{
			ReviewText:    req.ReviewText,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			Rating:        req.Rating,
		}
		if err := in.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		dispatch := env.Dispatch
		if req.SendEmail != nil {
			dispatch = *req.SendEmail
		}

		analysis, err := env.PipelineFor(dispatch).Run(r.Context(), in)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		review := model.NewReview(in.CustomerName, in.CustomerEmail, in.ReviewText, in.Rating, analysis)

		existing, err := env.Store.GetReviewByEmail(r.Context(), review.CustomerEmail)
		if err != nil {
			zap.L().Error("lookup review failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to store review")
			return
		}

		stored, err := env.Store.UpsertReview(r.Context(), review)
		if err != nil {
			zap.L().Error("store review failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to store review")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"review_id": stored.ID,
			"is_update": existing != nil,
			"analysis":  analysis,
		})
	}
}

func handleListReviews(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := model.ReviewFilter{
			Sentiment: model.Sentiment(r.URL.Query().Get("sentiment")),
			Urgency:   model.UrgencyLevel(r.URL.Query().Get("urgency")),
		}
		if filter.Sentiment != "" && !model.ValidSentiment(filter.Sentiment) {
			writeError(w, http.StatusBadRequest, "invalid sentiment filter")
			return
		}
		if filter.Urgency != "" && !model.ValidUrgency(filter.Urgency) {
			writeError(w, http.StatusBadRequest, "invalid urgency filter")
			return
		}

		reviews, err := env.Store.ListReviews(r.Context(), filter)
		if err != nil {
			zap.L().Error("list reviews failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list reviews")
			return
		}
		if reviews == nil {
			reviews = []model.Review{}
		}
		writeJSON(w, http.StatusOK, reviews)
	}
}

func handleUploadReviews(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()

		// The spreadsheet parsers work from disk; spool the upload.
		tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(header.Filename))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to buffer upload")
			return
		}
		defer os.Remove(tmp.Name())
		if _, err := io.Copy(tmp, file); err != nil {
			tmp.Close()
			writeError(w, http.StatusInternalServerError, "failed to buffer upload")
			return
		}
		tmp.Close()

		result, err := ingest.ReadFile(tmp.Name())
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		dispatch := env.Dispatch
		if q := r.URL.Query().Get("send_emails"); q != "" {
			v, err := strconv.ParseBool(q)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid send_emails value")
				return
			}
			dispatch = v
		}

		summary, err := processBatch(r.Context(), result.Rows, 0, cfg.Batch.MaxConcurrentReviews, false, env.Store, env.PipelineFor(dispatch).Run)
		if err != nil {
			zap.L().Error("upload processing failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to process upload")
			return
		}

		rowErrors := result.Errors
		if rowErrors == nil {
			rowErrors = []ingest.RowError{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"filename":   header.Filename,
			"summary":    summary,
			"row_errors": rowErrors,
		})
	}
}

func handleDashboard(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := env.Store.Stats(r.Context())
		if err != nil {
			zap.L().Error("dashboard stats failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to compute stats")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func handleEmailTest(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			To string `json:"to"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !model.ValidEmailAddress(req.To) {
			writeError(w, http.StatusUnprocessableEntity, "valid to address is required")
			return
		}

		ctx := r.Context()
		if err := env.Transport.Verify(ctx); err != nil {
			writeError(w, http.StatusBadGateway, eris.Wrap(err, "smtp verification failed").Error())
			return
		}

		subject := fmt.Sprintf("%s email configuration test", cfg.Business.Name)
		body := fmt.Sprintf("This is a test email sent at %s to confirm the SMTP configuration.",
			time.Now().UTC().Format(time.RFC3339))
		if err := env.Transport.Send(ctx, req.To, subject, body); err != nil {
			writeError(w, http.StatusBadGateway, eris.Wrap(err, "test send failed").Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "to": req.To})
	}
}
