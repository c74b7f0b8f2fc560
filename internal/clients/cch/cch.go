package cch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/platform/envutil"
)

const (
	verifyPath = "/api/cch/verify-and-compare"
	healthPath = "/api/health"

	// CCH regularly takes over two minutes to answer a scenario.
	verifyTimeout = 3 * time.Minute
	healthTimeout = 10 * time.Second
)

// ErrTimeout marks a verification call that ran out the clock, so
// callers can tell "service slow" from "service down".
var ErrTimeout = errors.New("cch verification timed out")

// UpstreamError is a non-2xx answer from the CCH service.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("cch api returned %d: %s", e.Status, e.Body)
}

// Client calls the CCH research service that independently answers CGT
// scenarios for cross-checking our analysis.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func New(log *logger.Logger) *Client {
	return &Client{
		baseURL: envutil.String("CCH_API_URL", "https://cch.cgtbrain.com.au"),
		http:    &http.Client{Timeout: verifyTimeout},
		log:     log,
	}
}

type VerifyRequest struct {
	OurAnswer string            `json:"our_answer"`
	Scenario  string            `json:"verification_prompt"`
	Timeline  []json.RawMessage `json:"timeline"`
}

type VerifyResult struct {
	Response   *domain.CCHResponse
	Comparison *domain.ComparisonResult
	// Scenario after formatting, kept for the verification record.
	FormattedScenario string
}

// VerifyAndCompare submits our answer and scenario to CCH. The scenario
// is flattened to a single line first; CCH's chat ingestion chokes on
// markdown and control characters.
func (c *Client) VerifyAndCompare(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	scenario := FormatPrompt(req.Scenario)
	if scenario == "" {
		return nil, fmt.Errorf("%w: scenario/verification prompt is required", errs.ErrInvalidArgument)
	}
	if req.OurAnswer == "" {
		return nil, fmt.Errorf("%w: our answer is required for comparison", errs.ErrInvalidArgument)
	}

	timeline := req.Timeline
	if timeline == nil {
		timeline = []json.RawMessage{}
	}
	body, err := json.Marshal(map[string]any{
		"our_answer":          req.OurAnswer,
		"verification_prompt": scenario,
		"timeline":            timeline,
	})
	if err != nil {
		return nil, fmt.Errorf("encode cch request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.log.Info("calling CCH verify-and-compare", "scenarioLength", len(scenario), "answerLength", len(req.OurAnswer))
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("cch api: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cch response: %w", err)
	}
	if resp.StatusCode == http.StatusRequestTimeout {
		return nil, ErrTimeout
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}

	var decoded struct {
		Success    bool                     `json:"success"`
		Error      string                   `json:"error"`
		Response   string                   `json:"cch_response"`
		Sources    []domain.CCHSource       `json:"sources"`
		Comparison *domain.ComparisonResult `json:"comparison"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("unrecognized cch response shape: %w", err)
	}
	if !decoded.Success {
		msg := decoded.Error
		if msg == "" {
			msg = "cch verification failed"
		}
		return nil, fmt.Errorf("cch: %s", msg)
	}

	return &VerifyResult{
		Response: &domain.CCHResponse{
			Text:      decoded.Response,
			Sources:   decoded.Sources,
			QueriedAt: time.Now().UTC(),
		},
		Comparison:        decoded.Comparison,
		FormattedScenario: scenario,
	}, nil
}

// Health pings the CCH service.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("cch health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &UpstreamError{Status: resp.StatusCode, Body: "cch service unavailable"}
	}
	return nil
}

var (
	markdownHeaders = regexp.MustCompile(`#{1,6}\s*`)
	multiSpace      = regexp.MustCompile(`\s+`)
	literalEscapes  = strings.NewReplacer(`\n`, " ", `\r`, " ", "\r\n", " ", "\r", " ", "\n", " ", "\t", " ")
)

// FormatPrompt flattens a verification prompt to one clean line: literal
// escape sequences, newlines, tabs and markdown headers all go.
func FormatPrompt(prompt string) string {
	if prompt == "" {
		return ""
	}
	out := literalEscapes.Replace(prompt)
	out = markdownHeaders.ReplaceAllString(out, "")
	out = multiSpace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
