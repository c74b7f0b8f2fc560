package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/cch"
	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/reports"
)

// Batch verifications are capped to bound worst-case latency: each item
// can take the full CCH timeout.
const MaxBatchSize = 20

// Verifier is the slice of the CCH client the service uses.
type Verifier interface {
	VerifyAndCompare(ctx context.Context, req cch.VerifyRequest) (*cch.VerifyResult, error)
}

// Service runs reports through CCH and records the outcomes.
type Service struct {
	cch     Verifier
	reports *reports.Store
	log     *logger.Logger
	now     func() time.Time
}

func New(verifier Verifier, reportStore *reports.Store, log *logger.Logger) *Service {
	return &Service{cch: verifier, reports: reportStore, log: log, now: time.Now}
}

// VerifyReport sends a report's scenario and answer to CCH and records
// the attempt. CCH trouble still produces a verification record; only a
// missing or unanalyzed report is an error.
func (s *Service) VerifyReport(ctx context.Context, reportID, verifiedBy string) (*domain.Verification, error) {
	r, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if r.VerificationPrompt == "" || len(r.AnalysisResponse) == 0 {
		return nil, fmt.Errorf("%w: report has no analysis to verify", errs.ErrInvalidArgument)
	}
	ourAnswer := ExtractOurAnswer(r.AnalysisResponse)
	if ourAnswer == "" {
		return nil, fmt.Errorf("%w: could not extract an answer from the analysis", errs.ErrInvalidArgument)
	}

	if _, err := s.reports.SetStatus(ctx, reportID, domain.ReportVerifying); err != nil {
		return nil, err
	}

	started := s.now()
	result, verr := s.cch.VerifyAndCompare(ctx, cch.VerifyRequest{
		OurAnswer: ourAnswer,
		Scenario:  r.VerificationPrompt,
		Timeline:  r.TimelineData.Events,
	})
	duration := s.now().Sub(started).Milliseconds()

	in := reports.VerificationInput{
		VerifiedBy: verifiedBy,
		DurationMS: duration,
		OurAnswer:  ourAnswer,
	}
	switch {
	case verr == nil:
		in.Status = domain.VerificationSuccess
		in.Scenario = result.FormattedScenario
		in.CCHResponse = result.Response
		in.Comparison = result.Comparison
	case errors.Is(verr, cch.ErrTimeout):
		in.Status = domain.VerificationTimeout
		in.ErrorMessage = "CCH took too long to respond. Please try again."
	default:
		var upstream *cch.UpstreamError
		if errors.As(verr, &upstream) {
			in.Status = domain.VerificationError
		} else {
			in.Status = domain.VerificationFailed
		}
		in.ErrorMessage = verr.Error()
	}

	v, err := s.reports.AddVerification(ctx, reportID, in)
	if err != nil {
		return nil, err
	}
	s.log.Info("report verified", "reportId", reportID, "status", v.Status, "durationMs", duration)
	return v, nil
}

// BatchItem is one report's outcome in a batch verify.
type BatchItem struct {
	ReportID string                    `json:"reportId"`
	Success  bool                      `json:"success"`
	Status   domain.VerificationStatus `json:"status,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

// VerifyBatch runs each report independently; one failure never aborts
// the rest.
func (s *Service) VerifyBatch(ctx context.Context, reportIDs []string, verifiedBy string) (items []BatchItem, verified, failed int, err error) {
	if len(reportIDs) == 0 {
		return nil, 0, 0, fmt.Errorf("%w: reportIds are required", errs.ErrInvalidArgument)
	}
	if len(reportIDs) > MaxBatchSize {
		return nil, 0, 0, fmt.Errorf("%w: at most %d reports per batch", errs.ErrInvalidArgument, MaxBatchSize)
	}
	for _, id := range reportIDs {
		v, verr := s.VerifyReport(ctx, id, verifiedBy)
		if verr != nil {
			items = append(items, BatchItem{ReportID: id, Error: verr.Error()})
			failed++
			continue
		}
		ok := v.Status == domain.VerificationSuccess
		items = append(items, BatchItem{ReportID: id, Success: ok, Status: v.Status, Error: v.ErrorMessage})
		if ok {
			verified++
		} else {
			failed++
		}
	}
	return items, verified, failed, nil
}

// ExtractOurAnswer flattens the analysis response into the comparison
// text CCH receives: either a direct answer field or the per-property
// calculation summaries.
func ExtractOurAnswer(raw json.RawMessage) string {
	var probe struct {
		Answer     string            `json:"answer"`
		Data       json.RawMessage   `json:"data"`
		Properties []propertySummary `json:"properties"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	if probe.Answer != "" {
		return probe.Answer
	}
	properties := probe.Properties
	if len(properties) == 0 && len(probe.Data) > 0 {
		var inner struct {
			Properties []propertySummary `json:"properties"`
			Data       *struct {
				Properties []propertySummary `json:"properties"`
			} `json:"data"`
		}
		if err := json.Unmarshal(probe.Data, &inner); err == nil {
			properties = inner.Properties
			if len(properties) == 0 && inner.Data != nil {
				properties = inner.Data.Properties
			}
		}
	}
	if len(properties) == 0 {
		return ""
	}

	var parts []string
	for _, p := range properties {
		addr := p.PropertyAddress
		if addr == "" {
			addr = "Unknown"
		}
		parts = append(parts, "Property: "+addr)
		if cs := p.CalculationSummary; cs != nil {
			parts = append(parts,
				"Sale Price: "+cs.SalePrice.String(),
				"Total Cost Base: "+cs.TotalCostBase.String(),
				"Gross Capital Gain: "+cs.GrossCapitalGain.String(),
				"Main Residence Exemption: "+cs.MainResidenceExemptionPercentage.String()+"%",
				"Taxable Capital Gain: "+cs.TaxableCapitalGain.String(),
			)
			if cs.CGTDiscountApplicable {
				parts = append(parts, "CGT Discount: "+cs.CGTDiscountPercentage.String()+"%")
			}
			parts = append(parts, "Net Capital Gain: "+cs.NetCapitalGain.String())
		}
		if p.Result != "" {
			parts = append(parts, "Result: "+p.Result)
		}
	}
	return strings.Join(parts, " | ")
}

type propertySummary struct {
	PropertyAddress    string       `json:"property_address"`
	Result             string       `json:"result"`
	CalculationSummary *calcSummary `json:"calculation_summary"`
}

type calcSummary struct {
	SalePrice                        jsonScalar `json:"sale_price"`
	TotalCostBase                    jsonScalar `json:"total_cost_base"`
	GrossCapitalGain                 jsonScalar `json:"gross_capital_gain"`
	MainResidenceExemptionPercentage jsonScalar `json:"main_residence_exemption_percentage"`
	TaxableCapitalGain               jsonScalar `json:"taxable_capital_gain"`
	CGTDiscountApplicable            bool       `json:"cgt_discount_applicable"`
	CGTDiscountPercentage            jsonScalar `json:"cgt_discount_percentage"`
	NetCapitalGain                   jsonScalar `json:"net_capital_gain"`
}

// jsonScalar renders a field that upstream sends as either a number or a
// string.
type jsonScalar struct {
	raw json.RawMessage
}

func (v *jsonScalar) UnmarshalJSON(b []byte) error {
	v.raw = append(v.raw[:0], b...)
	return nil
}

func (v jsonScalar) String() string {
	if len(v.raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(v.raw))
}
