package domain

import "time"

type SubmissionStatus string

const (
	SubmissionPending    SubmissionStatus = "pending"
	SubmissionInProgress SubmissionStatus = "in_progress"
	SubmissionReviewed   SubmissionStatus = "reviewed"
	SubmissionCompleted  SubmissionStatus = "completed"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionPending, SubmissionInProgress, SubmissionReviewed, SubmissionCompleted:
		return true
	}
	return false
}

// CanTransitionTo is the explicit transition policy: any valid status may
// be targeted from any other, except that a completed submission may only
// be reopened to reviewed. Same-state updates are allowed (no-op).
func (s SubmissionStatus) CanTransitionTo(target SubmissionStatus) bool {
	if !target.Valid() {
		return false
	}
	if s == SubmissionCompleted {
		return target == SubmissionCompleted || target == SubmissionReviewed
	}
	return true
}

// Submission is a user's timeline routed to a tax agent for feedback.
type Submission struct {
	ID           string `json:"id"`
	TaxAgentID   string `json:"taxAgentId"`
	ShareID      string `json:"shareId"`
	TimelineLink string `json:"timelineLink"`

	UserEmail string `json:"userEmail"`
	UserPhone string `json:"userPhone,omitempty"`

	Status      SubmissionStatus `json:"status"`
	SubmittedAt time.Time        `json:"submittedAt"`
	ViewedAt    *time.Time       `json:"viewedAt,omitempty"`
	ReviewedAt  *time.Time       `json:"reviewedAt,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`

	AgentNotes      string     `json:"agentNotes,omitempty"`
	FeedbackSentAt  *time.Time `json:"feedbackSentAt,omitempty"`
	FeedbackMessage string     `json:"feedbackMessage,omitempty"`

	PropertiesCount  int    `json:"propertiesCount"`
	EventsCount      int    `json:"eventsCount"`
	HasAnalysis      bool   `json:"hasAnalysis"`
	AnalysisProvider string `json:"analysisProvider,omitempty"`
}
