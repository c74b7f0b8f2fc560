package verification

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/cch"
	"github.com/cgtbrain/cgt-brain-backend/internal/clients/kv"
	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/reports"
)

type fakeCCH struct {
	result *cch.VerifyResult
	err    error
	calls  int
}

func (f *fakeCCH) VerifyAndCompare(ctx context.Context, req cch.VerifyRequest) (*cch.VerifyResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func analyzedReport(t *testing.T, st *reports.Store) *domain.Report {
	t.Helper()
	ctx := context.Background()
	prop, _ := json.Marshal(map[string]string{"id": "p1", "address": "1 Test St"})
	ev, _ := json.Marshal(map[string]string{"id": "e1", "eventType": "purchase"})
	r, err := st.Create(ctx, reports.CreateInput{
		TimelineData: domain.TimelineInput{
			Properties: []json.RawMessage{prop},
			Events:     []json.RawMessage{ev},
		},
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	response := []byte(`{"answer": "Net capital gain is $100,000"}`)
	if _, err := st.AttachAnalysis(ctx, r.ID, reports.AnalysisResult{
		Response:           response,
		VerificationPrompt: "A property purchased in 2015 and sold in 2022...",
		Succeeded:          true,
	}); err != nil {
		t.Fatalf("attach analysis: %v", err)
	}
	return r
}

func newService(t *testing.T, fake *fakeCCH) (*Service, *reports.Store) {
	t.Helper()
	st := reports.New(kv.NewMemory(), logger.NewNop())
	svc := New(fake, st, logger.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return svc, st
}

func TestVerifyReportSuccess(t *testing.T) {
	fake := &fakeCCH{result: &cch.VerifyResult{
		Response:          &domain.CCHResponse{Text: "CCH agrees"},
		Comparison:        &domain.ComparisonResult{OverallAlignment: "high", MatchPercentage: 95},
		FormattedScenario: "A property purchased in 2015 and sold in 2022...",
	}}
	svc, st := newService(t, fake)
	r := analyzedReport(t, st)

	v, err := svc.VerifyReport(context.Background(), r.ID, "admin")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.Status != domain.VerificationSuccess {
		t.Fatalf("status = %q", v.Status)
	}
	if v.OurAnswer != "Net capital gain is $100,000" {
		t.Fatalf("ourAnswer = %q", v.OurAnswer)
	}
	if v.Comparison == nil || v.Comparison.MatchPercentage != 95 {
		t.Fatalf("comparison = %+v", v.Comparison)
	}

	got, err := st.Get(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if got.Status != domain.ReportVerified {
		t.Fatalf("report status = %q", got.Status)
	}
}

func TestVerifyReportTimeout(t *testing.T) {
	fake := &fakeCCH{err: cch.ErrTimeout}
	svc, st := newService(t, fake)
	r := analyzedReport(t, st)

	v, err := svc.VerifyReport(context.Background(), r.ID, "admin")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.Status != domain.VerificationTimeout {
		t.Fatalf("status = %q, want timeout", v.Status)
	}
	if v.ErrorMessage == "" {
		t.Fatalf("timeout record has no message")
	}
}

func TestVerifyReportUpstreamError(t *testing.T) {
	fake := &fakeCCH{err: &cch.UpstreamError{Status: 503, Body: "down"}}
	svc, st := newService(t, fake)
	r := analyzedReport(t, st)

	v, err := svc.VerifyReport(context.Background(), r.ID, "admin")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.Status != domain.VerificationError {
		t.Fatalf("status = %q, want error", v.Status)
	}
}

func TestVerifyReportWithoutAnalysis(t *testing.T) {
	fake := &fakeCCH{}
	svc, st := newService(t, fake)
	ctx := context.Background()
	prop, _ := json.Marshal(map[string]string{"id": "p1"})
	r, err := st.Create(ctx, reports.CreateInput{
		TimelineData: domain.TimelineInput{
			Properties: []json.RawMessage{prop},
			Events:     []json.RawMessage{},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.VerifyReport(ctx, r.ID, "admin")
	if !errs.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if fake.calls != 0 {
		t.Fatalf("CCH called for unanalyzed report")
	}
}

func TestVerifyBatchPartialFailure(t *testing.T) {
	fake := &fakeCCH{result: &cch.VerifyResult{
		Response:   &domain.CCHResponse{Text: "ok"},
		Comparison: &domain.ComparisonResult{MatchPercentage: 80},
	}}
	svc, st := newService(t, fake)
	a := analyzedReport(t, st)
	b := analyzedReport(t, st)

	items, verified, failed, err := svc.VerifyBatch(context.Background(), []string{a.ID, "report_bogus", b.ID}, "batch")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if verified != 2 || failed != 1 {
		t.Fatalf("verified/failed = %d/%d, want 2/1", verified, failed)
	}
	if len(items) != 3 || items[1].Success {
		t.Fatalf("items = %+v", items)
	}
}

func TestVerifyBatchCap(t *testing.T) {
	svc, _ := newService(t, &fakeCCH{})
	ids := make([]string, MaxBatchSize+1)
	for i := range ids {
		ids[i] = "report_x"
	}
	_, _, _, err := svc.VerifyBatch(context.Background(), ids, "batch")
	if !errs.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestExtractOurAnswerFromSummaries(t *testing.T) {
	raw := []byte(`{
		"properties": [{
			"property_address": "1 Test St",
			"calculation_summary": {
				"sale_price": "800000",
				"total_cost_base": 500000,
				"gross_capital_gain": "300000",
				"main_residence_exemption_percentage": 50,
				"taxable_capital_gain": "150000",
				"cgt_discount_applicable": true,
				"cgt_discount_percentage": 50,
				"net_capital_gain": "75000"
			},
			"result": "Net capital gain of $75,000"
		}]
	}`)
	got := ExtractOurAnswer(raw)
	for _, want := range []string{
		"Property: 1 Test St",
		"Sale Price: 800000",
		"Total Cost Base: 500000",
		"Main Residence Exemption: 50%",
		"CGT Discount: 50%",
		"Net Capital Gain: 75000",
		"Result: Net capital gain of $75,000",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("answer missing %q: %q", want, got)
		}
	}
}

func TestExtractOurAnswerNestedData(t *testing.T) {
	raw := []byte(`{"data": {"data": {"properties": [{"property_address": "2 Deep St", "result": "exempt"}]}}}`)
	got := ExtractOurAnswer(raw)
	if !strings.Contains(got, "Property: 2 Deep St") || !strings.Contains(got, "Result: exempt") {
		t.Fatalf("nested extraction failed: %q", got)
	}
}

func TestExtractOurAnswerEmpty(t *testing.T) {
	if got := ExtractOurAnswer([]byte(`{"something": "else"}`)); got != "" {
		t.Fatalf("got %q", got)
	}
	if got := ExtractOurAnswer([]byte(`not json`)); got != "" {
		t.Fatalf("got %q", got)
	}
}
