package cgtmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/platform/envutil"
)

// ResponseMode selects which upstream endpoint answers the calculation.
type ResponseMode string

const (
	ModeMarkdown ResponseMode = "markdown"
	ModeJSON     ResponseMode = "json"
)

const (
	pathMarkdown  = "/calculate-cgt/"
	pathJSON      = "/calculate-cgt-json/"
	pathFollowUp  = "/follow-up/"
	pathProviders = "/llm-providers/"

	defaultProvider = "claude"
)

// Client calls the external CGT model API that runs the actual tax
// analysis.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func New(log *logger.Logger) *Client {
	return &Client{
		baseURL: envutil.String("CGT_MODEL_API_URL", "https://cgtbrain.com.au"),
		http:    &http.Client{Timeout: 3 * time.Minute},
		log:     log,
	}
}

type CalculateRequest struct {
	Mode        ResponseMode
	LLMProvider string
	Timeline    domain.TimelineInput
}

// OutcomeKind tags the decoded analysis variant. The upstream answers in
// several shapes; callers switch on the tag instead of probing raw JSON.
type OutcomeKind string

const (
	OutcomeSucceeded     OutcomeKind = "succeeded"
	OutcomeClarification OutcomeKind = "clarification"
	OutcomeFailed        OutcomeKind = "failed"
)

type ClarificationQuestion struct {
	QuestionID         string   `json:"question_id"`
	Question           string   `json:"question"`
	Type               string   `json:"type"`
	PropertiesInvolved []string `json:"properties_involved"`
	PeriodStart        string   `json:"period_start,omitempty"`
	PeriodEnd          string   `json:"period_end,omitempty"`
	PeriodDays         int      `json:"period_days,omitempty"`
	PossibleAnswers    []string `json:"possible_answers"`
	Severity           string   `json:"severity"`
}

type AnalysisOutcome struct {
	Kind OutcomeKind
	// Raw upstream body, preserved for storage and display.
	Raw json.RawMessage

	VerificationPrompt string
	NetCapitalGain     *float64

	// Populated for OutcomeClarification.
	Questions []ClarificationQuestion
	// Populated for OutcomeFailed.
	ErrorMessage string
}

// Calculate sends a timeline to the model API and decodes the response
// into one of the three outcome variants. Unrecognized shapes are
// rejected rather than passed through.
func (c *Client) Calculate(ctx context.Context, req CalculateRequest) (*AnalysisOutcome, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeMarkdown
	}
	path := pathMarkdown
	switch mode {
	case ModeMarkdown:
	case ModeJSON:
		path = pathJSON
	default:
		return nil, fmt.Errorf("%w: unknown response mode %q", errs.ErrInvalidArgument, mode)
	}
	provider := req.LLMProvider
	if provider == "" {
		provider = defaultProvider
	}

	payload := map[string]any{
		"properties":   req.Timeline.Properties,
		"events":       req.Timeline.Events,
		"llm_provider": provider,
	}
	if len(req.Timeline.Notes) > 0 {
		payload["notes"] = req.Timeline.Notes
	}

	c.log.Info("calling CGT model API", "mode", mode, "provider", provider)
	raw, err := c.post(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	return decodeOutcome(raw)
}

// FollowUpRequest continues an analysis conversation.
type FollowUpRequest struct {
	SessionID   string `json:"session_id"`
	Question    string `json:"question"`
	LLMProvider string `json:"llm_provider"`
}

func (c *Client) FollowUp(ctx context.Context, req FollowUpRequest) (json.RawMessage, error) {
	if req.Question == "" {
		return nil, fmt.Errorf("%w: question is required", errs.ErrInvalidArgument)
	}
	if req.LLMProvider == "" {
		req.LLMProvider = "deepseek"
	}
	return c.post(ctx, pathFollowUp, req)
}

// Providers returns the upstream's list of available LLM providers.
func (c *Client) Providers(ctx context.Context) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathProviders, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	return c.do(httpReq)
}

func (c *Client) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	return c.do(httpReq)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cgt model api: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cgt model response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// UpstreamError surfaces the upstream status and body for diagnosis.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("cgt model api responded with status %d: %s", e.Status, e.Body)
}

// decodeOutcome inspects the upstream body for the shapes the model API
// is known to produce and tags it. The gap/clarification signal arrives
// in several formats across the two endpoints.
func decodeOutcome(raw json.RawMessage) (*AnalysisOutcome, error) {
	var probe struct {
		Success            *bool           `json:"success"`
		Status             string          `json:"status"`
		Error              string          `json:"error"`
		NeedsClarification bool            `json:"needs_clarification"`
		VerificationPrompt string          `json:"verification_prompt"`
		TotalNetGain       json.RawMessage `json:"total_net_capital_gain"`
		Summary            *struct {
			RequiresClarification bool `json:"requires_clarification"`
		} `json:"summary"`
		Verification *struct {
			ClarificationQuestions []rawQuestion `json:"clarification_questions"`
			Issues                 []rawIssue    `json:"issues"`
		} `json:"verification"`
		ClarificationQuestions []rawQuestion `json:"clarification_questions"`
		Gaps                   []rawQuestion `json:"gaps"`
		TimelineGaps           []rawQuestion `json:"timeline_gaps"`
		Properties             []struct {
			VerificationStatus string     `json:"verification_status"`
			PropertyAddress    string     `json:"property_address"`
			Address            string     `json:"address"`
			Issues             []rawIssue `json:"issues"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("unrecognized cgt model response shape: %w", err)
	}

	if probe.Status == "error" {
		msg := probe.Error
		if msg == "" {
			msg = "Analysis failed"
		}
		return &AnalysisOutcome{Kind: OutcomeFailed, Raw: raw, ErrorMessage: msg}, nil
	}

	hasFailedProperties := false
	for _, p := range probe.Properties {
		if p.VerificationStatus == "failed" {
			hasFailedProperties = true
			break
		}
	}
	needsClarification := probe.NeedsClarification ||
		(probe.Success != nil && !*probe.Success && probe.NeedsClarification) ||
		probe.Status == "verification_failed" ||
		(probe.Summary != nil && probe.Summary.RequiresClarification) ||
		hasFailedProperties

	if needsClarification {
		questions := probe.ClarificationQuestions
		if len(questions) == 0 && probe.Verification != nil {
			questions = probe.Verification.ClarificationQuestions
		}
		if len(questions) == 0 {
			questions = probe.Gaps
		}
		if len(questions) == 0 {
			questions = probe.TimelineGaps
		}
		if len(questions) == 0 && hasFailedProperties {
			for _, p := range probe.Properties {
				if p.VerificationStatus != "failed" {
					continue
				}
				addr := p.PropertyAddress
				if addr == "" {
					addr = p.Address
				}
				for _, issue := range p.Issues {
					questions = append(questions, issue.toQuestion(addr))
				}
			}
		}
		if len(questions) == 0 && probe.Verification != nil {
			for _, issue := range probe.Verification.Issues {
				if issue.Type == "gap" || issue.RequiresClarification {
					questions = append(questions, issue.toQuestion(issue.PropertyAddress))
				}
			}
		}
		normalized := make([]ClarificationQuestion, 0, len(questions))
		for _, q := range questions {
			normalized = append(normalized, q.normalize())
		}
		return &AnalysisOutcome{
			Kind:               OutcomeClarification,
			Raw:                raw,
			VerificationPrompt: probe.VerificationPrompt,
			Questions:          normalized,
		}, nil
	}

	if probe.Success != nil && !*probe.Success {
		msg := probe.Error
		if msg == "" {
			msg = "Analysis failed"
		}
		return &AnalysisOutcome{Kind: OutcomeFailed, Raw: raw, ErrorMessage: msg}, nil
	}

	return &AnalysisOutcome{
		Kind:               OutcomeSucceeded,
		Raw:                raw,
		VerificationPrompt: probe.VerificationPrompt,
		NetCapitalGain:     parseNumeric(probe.TotalNetGain),
	}, nil
}

type rawPeriod struct {
	StartDate string `json:"start_date"`
	Start     string `json:"start"`
	EndDate   string `json:"end_date"`
	End       string `json:"end"`
	Days      int    `json:"days"`
}

type rawQuestion struct {
	QuestionID         string    `json:"question_id"`
	Question           string    `json:"question"`
	Type               string    `json:"type"`
	PropertyAddress    string    `json:"property_address"`
	PropertiesInvolved []string  `json:"properties_involved"`
	Period             rawPeriod `json:"period"`
	PossibleAnswers    []string  `json:"possible_answers"`
	Options            []string  `json:"options"`
	Severity           string    `json:"severity"`
}

func (q rawQuestion) normalize() ClarificationQuestion {
	start := q.Period.StartDate
	if start == "" {
		start = q.Period.Start
	}
	end := q.Period.EndDate
	if end == "" {
		end = q.Period.End
	}
	involved := q.PropertiesInvolved
	if len(involved) == 0 && q.PropertyAddress != "" {
		involved = []string{q.PropertyAddress}
	}
	answers := q.PossibleAnswers
	if len(answers) == 0 {
		answers = q.Options
	}
	addr := q.PropertyAddress
	if addr == "" && len(involved) > 0 {
		addr = involved[0]
	}
	kind := q.Type
	if kind == "" {
		kind = "clarification"
	}
	severity := q.Severity
	if severity == "" {
		severity = "info"
	}
	id := q.QuestionID
	if id == "" {
		id = fmt.Sprintf("%s-%s-%s", addr, start, end)
	}
	return ClarificationQuestion{
		QuestionID:         id,
		Question:           q.Question,
		Type:               kind,
		PropertiesInvolved: involved,
		PeriodStart:        start,
		PeriodEnd:          end,
		PeriodDays:         q.Period.Days,
		PossibleAnswers:    answers,
		Severity:           severity,
	}
}

type rawIssue struct {
	Type                  string    `json:"type"`
	RequiresClarification bool      `json:"requires_clarification"`
	ClarificationQuestion string    `json:"clarification_question"`
	Question              string    `json:"question"`
	Message               string    `json:"message"`
	PropertyAddress       string    `json:"property_address"`
	AffectedPeriod        rawPeriod `json:"affected_period"`
	Period                rawPeriod `json:"period"`
	Options               []string  `json:"options"`
	PossibleAnswers       []string  `json:"possible_answers"`
	Severity              string    `json:"severity"`
}

func (i rawIssue) toQuestion(address string) rawQuestion {
	question := i.ClarificationQuestion
	if question == "" {
		question = i.Question
	}
	if question == "" {
		question = i.Message
	}
	if question == "" {
		question = "Please clarify this period"
	}
	period := i.AffectedPeriod
	if period == (rawPeriod{}) {
		period = i.Period
	}
	answers := i.Options
	if len(answers) == 0 {
		answers = i.PossibleAnswers
	}
	severity := i.Severity
	if severity == "" {
		severity = "warning"
	}
	return rawQuestion{
		Question:        question,
		PropertyAddress: address,
		Period:          period,
		Options:         answers,
		Severity:        severity,
	}
}

// parseNumeric accepts the gain as either a JSON number or a numeric
// string.
func parseNumeric(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return &n
		}
	}
	return nil
}
