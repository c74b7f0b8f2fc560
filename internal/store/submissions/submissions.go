package submissions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/kv"
	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/ids"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
)

const (
	submissionKeyPrefix = "submission:"
	byAgentKeyPrefix    = "submissions_by_agent:"
	allKey              = "submissions_all"
)

func submissionKey(id string) string { return submissionKeyPrefix + id }
func byAgentKey(agentID string) string {
	return byAgentKeyPrefix + agentID
}

// AgentDirectory is the slice of the agents store a submission needs: to
// confirm the target agent exists and takes work.
type AgentDirectory interface {
	Get(ctx context.Context, id string) (*domain.TaxAgent, error)
}

// TimelineSource confirms a share ID resolves to a stored timeline.
type TimelineSource interface {
	Exists(ctx context.Context, shareID string) (bool, error)
}

// Store persists timeline submissions routed to tax agents.
type Store struct {
	kv        kv.Store
	agents    AgentDirectory
	timelines TimelineSource
	log       *logger.Logger
	now       func() time.Time

	// Base URL the shared-timeline links are built on.
	appBaseURL string
}

func New(kvStore kv.Store, agents AgentDirectory, timelines TimelineSource, appBaseURL string, log *logger.Logger) *Store {
	return &Store{
		kv:         kvStore,
		agents:     agents,
		timelines:  timelines,
		log:        log,
		now:        time.Now,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
	}
}

// SetClock overrides the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

type CreateInput struct {
	TaxAgentID string
	ShareID    string
	UserEmail  string
	UserPhone  string

	PropertiesCount  int
	EventsCount      int
	HasAnalysis      bool
	AnalysisProvider string
}

// Create routes a shared timeline to an agent. The agent must exist and
// be active, and the share ID must resolve to a stored timeline.
func (s *Store) Create(ctx context.Context, in CreateInput) (*domain.Submission, error) {
	if in.TaxAgentID == "" || in.ShareID == "" {
		return nil, fmt.Errorf("%w: taxAgentId and shareId are required", errs.ErrInvalidArgument)
	}
	if strings.TrimSpace(in.UserEmail) == "" {
		return nil, fmt.Errorf("%w: userEmail is required", errs.ErrInvalidArgument)
	}

	agent, err := s.agents.Get(ctx, in.TaxAgentID)
	if err != nil {
		if errs.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: tax agent not found", errs.ErrInvalidArgument)
		}
		return nil, err
	}
	if !agent.IsActive {
		return nil, fmt.Errorf("%w: tax agent is not accepting submissions", errs.ErrInvalidArgument)
	}
	ok, err := s.timelines.Exists(ctx, in.ShareID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: shared timeline not found", errs.ErrInvalidArgument)
	}

	sub := &domain.Submission{
		ID:               ids.NewSubmissionID(),
		TaxAgentID:       in.TaxAgentID,
		ShareID:          in.ShareID,
		TimelineLink:     s.appBaseURL + "/shared/" + in.ShareID,
		UserEmail:        strings.TrimSpace(in.UserEmail),
		UserPhone:        strings.TrimSpace(in.UserPhone),
		Status:           domain.SubmissionPending,
		SubmittedAt:      s.now().UTC(),
		PropertiesCount:  in.PropertiesCount,
		EventsCount:      in.EventsCount,
		HasAnalysis:      in.HasAnalysis,
		AnalysisProvider: in.AnalysisProvider,
	}
	if err := kv.SetJSON(ctx, s.kv, submissionKey(sub.ID), sub, 0); err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}
	if err := s.listAppend(ctx, byAgentKey(sub.TaxAgentID), sub.ID); err != nil {
		return nil, err
	}
	if err := s.listAppend(ctx, allKey, sub.ID); err != nil {
		return nil, err
	}
	s.log.Info("submission created", "submissionId", sub.ID, "agentId", sub.TaxAgentID)
	return sub, nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Submission, error) {
	var sub domain.Submission
	found, err := kv.GetJSON(ctx, s.kv, submissionKey(id), &sub)
	if err != nil {
		return nil, fmt.Errorf("load submission %s: %w", id, err)
	}
	if !found {
		return nil, errs.ErrNotFound
	}
	return &sub, nil
}

// GetForAgent enforces ownership and stamps viewedAt on the first
// authorized read.
func (s *Store) GetForAgent(ctx context.Context, id, agentID string) (*domain.Submission, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.TaxAgentID != agentID {
		return nil, errs.ErrForbidden
	}
	if sub.ViewedAt == nil {
		now := s.now().UTC()
		sub.ViewedAt = &now
		if err := kv.SetJSON(ctx, s.kv, submissionKey(id), sub, 0); err != nil {
			return nil, fmt.Errorf("persist submission %s: %w", id, err)
		}
	}
	return sub, nil
}

// ListByAgent returns an agent's submissions, newest first.
func (s *Store) ListByAgent(ctx context.Context, agentID string) ([]*domain.Submission, error) {
	return s.list(ctx, byAgentKey(agentID))
}

// ListAll returns every submission, newest first. Admin view.
func (s *Store) ListAll(ctx context.Context) ([]*domain.Submission, error) {
	return s.list(ctx, allKey)
}

func (s *Store) list(ctx context.Context, key string) ([]*domain.Submission, error) {
	idx, err := s.readList(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Submission, 0, len(idx))
	for _, id := range idx {
		sub, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, sub)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

// SetStatus applies the transition policy and stamps reviewedAt and
// completedAt the first time those states are reached.
func (s *Store) SetStatus(ctx context.Context, id, agentID string, status domain.SubmissionStatus) (*domain.Submission, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", errs.ErrInvalidArgument, status)
	}
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.TaxAgentID != agentID {
		return nil, errs.ErrForbidden
	}
	if !sub.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: cannot move a %s submission to %s", errs.ErrInvalidArgument, sub.Status, status)
	}
	now := s.now().UTC()
	sub.Status = status
	if status == domain.SubmissionReviewed && sub.ReviewedAt == nil {
		sub.ReviewedAt = &now
	}
	if status == domain.SubmissionCompleted && sub.CompletedAt == nil {
		sub.CompletedAt = &now
	}
	if err := kv.SetJSON(ctx, s.kv, submissionKey(id), sub, 0); err != nil {
		return nil, fmt.Errorf("persist submission %s: %w", id, err)
	}
	return sub, nil
}

// SetNotes replaces the agent's private notes on a submission.
func (s *Store) SetNotes(ctx context.Context, id, agentID, notes string) (*domain.Submission, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.TaxAgentID != agentID {
		return nil, errs.ErrForbidden
	}
	sub.AgentNotes = notes
	if err := kv.SetJSON(ctx, s.kv, submissionKey(id), sub, 0); err != nil {
		return nil, fmt.Errorf("persist submission %s: %w", id, err)
	}
	return sub, nil
}

// RecordFeedback marks feedback as delivered. Callers persist this only
// after the outbound email actually went out.
func (s *Store) RecordFeedback(ctx context.Context, id, agentID, message string) (*domain.Submission, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.TaxAgentID != agentID {
		return nil, errs.ErrForbidden
	}
	now := s.now().UTC()
	sub.FeedbackMessage = message
	sub.FeedbackSentAt = &now
	if sub.Status.CanTransitionTo(domain.SubmissionReviewed) && sub.Status != domain.SubmissionCompleted {
		sub.Status = domain.SubmissionReviewed
		if sub.ReviewedAt == nil {
			sub.ReviewedAt = &now
		}
	}
	if err := kv.SetJSON(ctx, s.kv, submissionKey(id), sub, 0); err != nil {
		return nil, fmt.Errorf("persist submission %s: %w", id, err)
	}
	return sub, nil
}

func (s *Store) readList(ctx context.Context, key string) ([]string, error) {
	var idx []string
	found, err := kv.GetJSON(ctx, s.kv, key, &idx)
	if err != nil {
		return nil, fmt.Errorf("load list %s: %w", key, err)
	}
	if !found {
		return []string{}, nil
	}
	return idx, nil
}

func (s *Store) listAppend(ctx context.Context, key, id string) error {
	idx, err := s.readList(ctx, key)
	if err != nil {
		return err
	}
	idx = append(idx, id)
	if err := kv.SetJSON(ctx, s.kv, key, idx, 0); err != nil {
		return fmt.Errorf("persist list %s: %w", key, err)
	}
	return nil
}
