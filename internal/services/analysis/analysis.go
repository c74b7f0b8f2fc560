package analysis

import (
	"context"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/cgtmodel"
	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/reports"
)

// ModelAPI is the slice of the CGT model client the service uses.
type ModelAPI interface {
	Calculate(ctx context.Context, req cgtmodel.CalculateRequest) (*cgtmodel.AnalysisOutcome, error)
}

// Service runs a timeline through the model API and archives the result
// as a report.
type Service struct {
	model   ModelAPI
	reports *reports.Store
	log     *logger.Logger
}

func New(model ModelAPI, reportStore *reports.Store, log *logger.Logger) *Service {
	return &Service{model: model, reports: reportStore, log: log}
}

type AnalyzeInput struct {
	Mode        cgtmodel.ResponseMode
	LLMProvider string
	Timeline    domain.TimelineInput
	Source      domain.ReportSource
	ShareID     string
	UserEmail   string
}

type AnalyzeOutput struct {
	Outcome *cgtmodel.AnalysisOutcome
	// Empty when archiving was skipped or failed; the analysis itself
	// still succeeds.
	ReportID string
}

// Analyze calls the model and saves a report. Storage trouble never
// fails the request; the user still gets their analysis.
func (s *Service) Analyze(ctx context.Context, in AnalyzeInput) (*AnalyzeOutput, error) {
	outcome, err := s.model.Calculate(ctx, cgtmodel.CalculateRequest{
		Mode:        in.Mode,
		LLMProvider: in.LLMProvider,
		Timeline:    in.Timeline,
	})
	if err != nil {
		return nil, err
	}

	out := &AnalyzeOutput{Outcome: outcome}
	if outcome.Kind == cgtmodel.OutcomeClarification {
		// Gap responses are conversational, not archival.
		return out, nil
	}
	out.ReportID = s.archive(ctx, in, outcome)
	return out, nil
}

func (s *Service) archive(ctx context.Context, in AnalyzeInput, outcome *cgtmodel.AnalysisOutcome) string {
	if err := s.reports.Ping(ctx); err != nil {
		s.log.Warn("report storage unavailable, skipping archive", "error", err)
		return ""
	}
	provider := in.LLMProvider
	if provider == "" {
		provider = "claude"
	}
	r, err := s.reports.Create(ctx, reports.CreateInput{
		Source:       in.Source,
		LLMProvider:  provider,
		TimelineData: in.Timeline,
		ShareID:      in.ShareID,
		UserEmail:    in.UserEmail,
	})
	if err != nil {
		s.log.Warn("archive report failed", "error", err)
		return ""
	}
	if _, err := s.reports.AttachAnalysis(ctx, r.ID, reports.AnalysisResult{
		Response:           outcome.Raw,
		VerificationPrompt: outcome.VerificationPrompt,
		NetCapitalGain:     outcome.NetCapitalGain,
		Succeeded:          outcome.Kind == cgtmodel.OutcomeSucceeded,
	}); err != nil {
		s.log.Warn("attach analysis failed", "reportId", r.ID, "error", err)
	}
	s.log.Info("analysis archived", "reportId", r.ID)
	return r.ID
}
