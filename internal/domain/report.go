package domain

import (
	"encoding/json"
	"time"
)

// ReportStatus is the lifecycle state of a stored CGT report.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"   // created, not yet analyzed
	ReportAnalyzing ReportStatus = "analyzing" // analysis in progress
	ReportAnalyzed  ReportStatus = "analyzed"  // analysis complete, not verified
	ReportVerifying ReportStatus = "verifying" // CCH verification in progress
	ReportVerified  ReportStatus = "verified"  // has at least one successful verification
	ReportFailed    ReportStatus = "failed"    // analysis or verification failed
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportAnalyzing, ReportAnalyzed, ReportVerifying, ReportVerified, ReportFailed:
		return true
	}
	return false
}

// ReportSource says where an analysis originated.
type ReportSource string

const (
	SourceApp   ReportSource = "app"
	SourceAdmin ReportSource = "admin"
	SourceAPI   ReportSource = "api"
)

func (s ReportSource) Valid() bool {
	return s == SourceApp || s == SourceAdmin || s == SourceAPI
}

// TimelineInput is the property/event dataset a report was built from.
type TimelineInput struct {
	Properties []json.RawMessage `json:"properties"`
	Events     []json.RawMessage `json:"events"`
	Notes      []json.RawMessage `json:"notes,omitempty"`
	Metadata   *TimelineMetadata `json:"metadata,omitempty"`
}

type TimelineMetadata struct {
	TimelineVersion string `json:"timelineVersion,omitempty"`
	ExportedAt      string `json:"exportedAt,omitempty"`
}

// Report is a stored CGT analysis record.
type Report struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Source    ReportSource `json:"source"`
	// LLM provider used for the analysis (claude, openai, deepseek, ...).
	LLMProvider string       `json:"llmProvider"`
	Status      ReportStatus `json:"status"`

	TimelineData TimelineInput `json:"timelineData"`
	ShareID      string        `json:"shareId,omitempty"`

	// Full model response, kept opaque; decoded only where needed.
	AnalysisResponse   json.RawMessage `json:"analysisResponse,omitempty"`
	VerificationPrompt string          `json:"verificationPrompt,omitempty"`
	NetCapitalGain     *float64        `json:"netCapitalGain,omitempty"`
	AnalyzedAt         *time.Time      `json:"analyzedAt,omitempty"`

	VerificationIDs      []string `json:"verificationIds"`
	LatestVerificationID string   `json:"latestVerificationId,omitempty"`
	VerificationCount    int      `json:"verificationCount"`

	UserEmail string   `json:"userEmail,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	Tags      []string `json:"tags,omitempty"`

	PropertyCount          int    `json:"propertyCount"`
	EventCount             int    `json:"eventCount"`
	PrimaryPropertyAddress string `json:"primaryPropertyAddress,omitempty"`
}

// ReportSummary is the list-view projection of a report.
type ReportSummary struct {
	ID                     string                     `json:"id"`
	CreatedAt              time.Time                  `json:"createdAt"`
	Source                 ReportSource               `json:"source"`
	LLMProvider            string                     `json:"llmProvider"`
	Status                 ReportStatus               `json:"status"`
	NetCapitalGain         *float64                   `json:"netCapitalGain,omitempty"`
	PropertyCount          int                        `json:"propertyCount"`
	PrimaryPropertyAddress string                     `json:"primaryPropertyAddress,omitempty"`
	VerificationCount      int                        `json:"verificationCount"`
	LatestVerification     *LatestVerificationSummary `json:"latestVerification,omitempty"`
}

type LatestVerificationSummary struct {
	Alignment       string       `json:"alignment"`
	MatchPercentage float64      `json:"matchPercentage"`
	VerifiedAt      time.Time    `json:"verifiedAt"`
	ReviewStatus    ReviewStatus `json:"reviewStatus,omitempty"`
}

// ReportWithVerifications is a report with its verification history populated.
type ReportWithVerifications struct {
	Report
	Verifications []*Verification `json:"verifications"`
}

// ReportStats is the aggregate view the admin dashboard consumes.
type ReportStats struct {
	TotalReports       int                  `json:"totalReports"`
	ByStatus           map[ReportStatus]int `json:"byStatus"`
	BySource           map[string]int       `json:"bySource"`
	ByProvider         map[string]int       `json:"byProvider"`
	VerificationsToday int                  `json:"verificationsToday"`
	AverageAlignment   int                  `json:"averageAlignment"`
	ReportsThisWeek    int                  `json:"reportsThisWeek"`
	ReportsThisMonth   int                  `json:"reportsThisMonth"`
}
