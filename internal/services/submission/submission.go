package submission

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/mailer"
	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/agents"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/submissions"
)

// Sender is the slice of the mailer the service uses.
type Sender interface {
	Enabled() bool
	Send(ctx context.Context, msg mailer.Message) error
}

// Service handles the agent-to-client feedback flow on submissions.
type Service struct {
	subs   *submissions.Store
	agents *agents.Store
	mail   Sender
	log    *logger.Logger
}

func New(subs *submissions.Store, agentStore *agents.Store, mail Sender, log *logger.Logger) *Service {
	return &Service{subs: subs, agents: agentStore, mail: mail, log: log}
}

// SendFeedback emails the submitting user and records the feedback. The
// submission is only mutated after the email actually went out, so a
// provider failure never records feedback that was never delivered.
func (s *Service) SendFeedback(ctx context.Context, submissionID, agentID, message string) (*domain.Submission, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", errs.ErrInvalidArgument)
	}
	sub, err := s.subs.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.TaxAgentID != agentID {
		return nil, errs.ErrForbidden
	}
	agent, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if !s.mail.Enabled() {
		return nil, fmt.Errorf("email delivery is not configured")
	}

	if err := s.mail.Send(ctx, mailer.Message{
		To:      []string{sub.UserEmail},
		Subject: "Feedback on your CGT timeline from " + agent.Name,
		HTML:    feedbackHTML(agent, sub, message),
	}); err != nil {
		return nil, fmt.Errorf("send feedback email: %w", err)
	}

	updated, err := s.subs.RecordFeedback(ctx, submissionID, agentID, message)
	if err != nil {
		// Email is already out; surface the persistence failure.
		return nil, fmt.Errorf("record feedback after send: %w", err)
	}
	s.log.Info("feedback sent", "submissionId", submissionID, "agentId", agentID)
	return updated, nil
}

func feedbackHTML(agent *domain.TaxAgent, sub *domain.Submission, message string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	b.WriteString(`<h2 style="color: #333;">Your tax agent has reviewed your timeline</h2>`)
	b.WriteString(`<p style="color: #666; line-height: 1.6;">` + html.EscapeString(agent.Name) + ` has sent you feedback on the property timeline you submitted:</p>`)
	b.WriteString(`<blockquote style="color: #333; border-left: 3px solid #ccc; margin: 16px 0; padding: 8px 16px; white-space: pre-wrap;">`)
	b.WriteString(html.EscapeString(message))
	b.WriteString(`</blockquote>`)
	if sub.TimelineLink != "" {
		b.WriteString(`<p style="color: #666; line-height: 1.6;">You can revisit your shared timeline here: <a href="` + sub.TimelineLink + `">` + sub.TimelineLink + `</a></p>`)
	}
	b.WriteString(`<hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;" />`)
	b.WriteString(`<p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply to this message.</p>`)
	b.WriteString(`</div>`)
	return b.String()
}
