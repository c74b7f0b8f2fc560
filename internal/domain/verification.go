package domain

import "time"

// VerificationStatus is the outcome of one CCH verification run. The four
// values keep "service slow", "service down" and "bad answer" apart.
type VerificationStatus string

const (
	VerificationSuccess VerificationStatus = "success"
	VerificationFailed  VerificationStatus = "failed"
	VerificationError   VerificationStatus = "error"
	VerificationTimeout VerificationStatus = "timeout"
)

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewReviewed ReviewStatus = "reviewed"
	ReviewSkipped  ReviewStatus = "skipped"
)

func (s ReviewStatus) Valid() bool {
	return s == ReviewPending || s == ReviewReviewed || s == ReviewSkipped
}

type ReviewCorrectness string

const (
	CorrectnessCorrect   ReviewCorrectness = "correct"
	CorrectnessPartial   ReviewCorrectness = "partial"
	CorrectnessIncorrect ReviewCorrectness = "incorrect"
	CorrectnessUnsure    ReviewCorrectness = "unsure"
)

func (c ReviewCorrectness) Valid() bool {
	switch c {
	case CorrectnessCorrect, CorrectnessPartial, CorrectnessIncorrect, CorrectnessUnsure:
		return true
	}
	return false
}

// Verification is one verification attempt against a report.
type Verification struct {
	ID         string    `json:"id"`
	ReportID   string    `json:"reportId"`
	VerifiedAt time.Time `json:"verifiedAt"`
	VerifiedBy string    `json:"verifiedBy"` // "admin" or "batch"
	DurationMS int64     `json:"duration,omitempty"`

	// What was sent to CCH.
	OurAnswer string `json:"ourAnswer"`
	Scenario  string `json:"scenario"`

	CCHResponse *CCHResponse      `json:"cchResponse,omitempty"`
	Comparison  *ComparisonResult `json:"comparison,omitempty"`

	Status       VerificationStatus `json:"status"`
	ErrorMessage string             `json:"errorMessage,omitempty"`

	Review *VerificationReview `json:"review,omitempty"`
}

type VerificationReview struct {
	ReviewStatus  ReviewStatus      `json:"reviewStatus"`
	Correctness   ReviewCorrectness `json:"correctness,omitempty"`
	CorrectAnswer string            `json:"correctAnswer,omitempty"`
	ReviewNotes   string            `json:"reviewNotes,omitempty"`
	ReviewedAt    *time.Time        `json:"reviewedAt,omitempty"`
	ReviewedBy    string            `json:"reviewedBy,omitempty"`
	EditedAt      *time.Time        `json:"editedAt,omitempty"`
}

type CCHResponse struct {
	Text      string      `json:"text"`
	Sources   []CCHSource `json:"sources"`
	QueriedAt time.Time   `json:"queriedAt"`
}

type CCHSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ComparisonResult is CCH's judgement of our analysis.
type ComparisonResult struct {
	OverallAlignment string  `json:"overallAlignment"` // high | medium | low
	ConfidenceScore  float64 `json:"confidenceScore"`
	MatchPercentage  float64 `json:"matchPercentage"`

	Checkboxes VerificationCheckboxes `json:"checkboxes"`

	OurNetCGT             string `json:"ourNetCgt,omitempty"`
	ExternalNetCGT        string `json:"externalNetCgt,omitempty"`
	CalculationDifference string `json:"calculationDifference,omitempty"`

	KeyDifferences    []string `json:"keyDifferences"`
	ExternalLLMErrors []string `json:"externalLlmErrors"`
	Summary           string   `json:"summary"`
}

type VerificationCheckboxes struct {
	ScenarioMatch    bool `json:"scenarioMatch"`
	TimelineMatch    bool `json:"timelineMatch"`
	OwnershipMatch   bool `json:"ownershipMatch"`
	CostBaseMatch    bool `json:"costBaseMatch"`
	RulesMatch       bool `json:"rulesMatch"`
	CalculationMatch bool `json:"calculationMatch"`
}
