package submission

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/kv"
	"github.com/cgtbrain/cgt-brain-backend/internal/clients/mailer"
	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/agents"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/submissions"
)

type fakeSender struct {
	enabled bool
	err     error
	sent    []mailer.Message
}

func (f *fakeSender) Enabled() bool { return f.enabled }
func (f *fakeSender) Send(ctx context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type openTimelines struct{}

func (openTimelines) Exists(ctx context.Context, shareID string) (bool, error) { return true, nil }

func setup(t *testing.T, sender *fakeSender) (*Service, *submissions.Store, *domain.TaxAgent, *domain.Submission) {
	t.Helper()
	mem := kv.NewMemory()
	log := logger.NewNop()
	agentStore := agents.New(mem, log)
	agent, err := agentStore.Create(context.Background(), agents.CreateInput{
		Email:    "jane@example.com",
		Password: "correct-horse",
		Name:     "Jane",
	})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	subStore := submissions.New(mem, agentStore, openTimelines{}, "https://cgtbrain.example", log)
	sub, err := subStore.Create(context.Background(), submissions.CreateInput{
		TaxAgentID: agent.ID,
		ShareID:    "share123456",
		UserEmail:  "client@example.com",
	})
	if err != nil {
		t.Fatalf("create submission: %v", err)
	}
	return New(subStore, agentStore, sender, log), subStore, agent, sub
}

func TestSendFeedbackDeliversAndRecords(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, _, agent, sub := setup(t, sender)

	got, err := svc.SendFeedback(context.Background(), sub.ID, agent.ID, "Looks correct overall.")
	if err != nil {
		t.Fatalf("send feedback: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("emails sent = %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To[0] != "client@example.com" {
		t.Fatalf("to = %v", msg.To)
	}
	if !strings.Contains(msg.HTML, "Looks correct overall.") || !strings.Contains(msg.HTML, "Jane") {
		t.Fatalf("email body incomplete")
	}
	if got.FeedbackSentAt == nil || got.FeedbackMessage != "Looks correct overall." {
		t.Fatalf("feedback not recorded: %+v", got)
	}
	if got.Status != domain.SubmissionReviewed {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestSendFeedbackEscapesHTML(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, _, agent, sub := setup(t, sender)

	if _, err := svc.SendFeedback(context.Background(), sub.ID, agent.ID, "<script>alert(1)</script>"); err != nil {
		t.Fatalf("send feedback: %v", err)
	}
	if strings.Contains(sender.sent[0].HTML, "<script>") {
		t.Fatalf("message not escaped")
	}
}

func TestSendFeedbackProviderFailureDoesNotMutate(t *testing.T) {
	sender := &fakeSender{enabled: true, err: errors.New("rate limited")}
	svc, subStore, agent, sub := setup(t, sender)

	_, err := svc.SendFeedback(context.Background(), sub.ID, agent.ID, "hello")
	if err == nil {
		t.Fatalf("provider failure swallowed")
	}
	got, err := subStore.Get(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FeedbackSentAt != nil || got.FeedbackMessage != "" {
		t.Fatalf("feedback recorded despite failed send: %+v", got)
	}
	if got.Status != domain.SubmissionPending {
		t.Fatalf("status mutated to %q", got.Status)
	}
}

func TestSendFeedbackCrossTenant(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, _, _, sub := setup(t, sender)
	_, err := svc.SendFeedback(context.Background(), sub.ID, "someone-else", "hi")
	if !errs.Is(err, errs.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("email sent for cross-tenant request")
	}
}

func TestSendFeedbackRequiresMessage(t *testing.T) {
	sender := &fakeSender{enabled: true}
	svc, _, agent, sub := setup(t, sender)
	_, err := svc.SendFeedback(context.Background(), sub.ID, agent.ID, "   ")
	if !errs.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}
