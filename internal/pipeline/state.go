package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/feedback-cli/internal/model"
)

// Input carries the caller-supplied arguments for one analysis run.
type Input struct {
	ReviewText    string
	CustomerName  string
	CustomerEmail string
	Rating        *int // optional, 1-5 when present
}

// Validate rejects malformed input before the pipeline starts. This is
// the only condition under which Run returns an error.
func (in Input) Validate() error {
	if in.ReviewText == "" {
		return eris.New("pipeline: review_text is required")
	}
	if in.CustomerName == "" {
		return eris.New("pipeline: customer_name is required")
	}
	if !model.ValidEmailAddress(in.CustomerEmail) {
		return eris.Errorf("pipeline: invalid customer_email %q", in.CustomerEmail)
	}
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return eris.Errorf("pipeline: rating must be 1-5, got %d", *in.Rating)
	}
	return nil
}

// State is the analysis record threaded through every stage. Each run
// owns its own State; later stages read but never rewrite fields owned
// by earlier stages.
type State struct {
	// Caller-owned.
	ReviewText    string
	CustomerName  string
	CustomerEmail string
	Rating        *int

	// Written by assessSentiment.
	Sentiment      model.Sentiment
	SentimentScore float64

	// Written by categorizeIssues.
	Categories []model.Category
	KeyIssues  []string

	// Written by assessUrgency.
	UrgencyLevel model.UrgencyLevel

	// Written by decideEmailAction.
	ShouldSendEmail bool
	EmailTemplate   *model.EmailTemplate

	// Written by draftEmail.
	EmailSent bool

	// Orchestrator-owned.
	AnalysisComplete bool

	// Any stage may record a failure here; the last message wins and
	// the pipeline keeps going.
	Err string
}

func newState(in Input) *State {
	return &State{
		ReviewText:    in.ReviewText,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		Rating:        in.Rating,
	}
}

// analysis projects the final state into the caller's result shape.
func (st *State) analysis() *model.Analysis {
	return &model.Analysis{
		Sentiment:        st.Sentiment,
		SentimentScore:   st.SentimentScore,
		UrgencyLevel:     st.UrgencyLevel,
		Categories:       st.Categories,
		KeyIssues:        st.KeyIssues,
		ShouldSendEmail:  st.ShouldSendEmail,
		EmailTemplate:    st.EmailTemplate,
		EmailSent:        st.EmailSent,
		AnalysisComplete: st.AnalysisComplete,
		Error:            st.Err,
	}
}
