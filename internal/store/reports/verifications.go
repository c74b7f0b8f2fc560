package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/kv"
	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/ids"
)

// VerificationInput carries the outcome of one CCH verification run.
type VerificationInput struct {
	VerifiedBy   string
	DurationMS   int64
	OurAnswer    string
	Scenario     string
	CCHResponse  *domain.CCHResponse
	Comparison   *domain.ComparisonResult
	Status       domain.VerificationStatus
	ErrorMessage string
}

// AddVerification persists the record, links it to the owning report and
// updates the report's verification bookkeeping. A successful run
// promotes the report to verified; a failed run marks it failed unless a
// prior success already verified it.
func (s *Store) AddVerification(ctx context.Context, reportID string, in VerificationInput) (*domain.Verification, error) {
	r, err := s.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	v := &domain.Verification{
		ID:           ids.NewVerificationID(),
		ReportID:     reportID,
		VerifiedAt:   s.now().UTC(),
		VerifiedBy:   in.VerifiedBy,
		DurationMS:   in.DurationMS,
		OurAnswer:    in.OurAnswer,
		Scenario:     in.Scenario,
		CCHResponse:  in.CCHResponse,
		Comparison:   in.Comparison,
		Status:       in.Status,
		ErrorMessage: in.ErrorMessage,
	}
	if v.Status == domain.VerificationSuccess {
		v.Review = &domain.VerificationReview{ReviewStatus: domain.ReviewPending}
	}
	if err := kv.SetJSON(ctx, s.kv, verificationKey(v.ID), v, reportTTL); err != nil {
		return nil, fmt.Errorf("persist verification: %w", err)
	}

	r.VerificationIDs = append(r.VerificationIDs, v.ID)
	r.LatestVerificationID = v.ID
	r.VerificationCount = len(r.VerificationIDs)
	r.UpdatedAt = v.VerifiedAt
	if err := kv.SetJSON(ctx, s.kv, reportKey(reportID), r, reportTTL); err != nil {
		return nil, fmt.Errorf("persist report %s: %w", reportID, err)
	}

	next := r.Status
	if v.Status == domain.VerificationSuccess {
		next = domain.ReportVerified
	} else if r.Status != domain.ReportVerified {
		next = domain.ReportFailed
	}
	if next != r.Status {
		if _, err := s.SetStatus(ctx, reportID, next); err != nil {
			return nil, err
		}
	}
	s.log.Info("verification recorded", "reportId", reportID, "verificationId", v.ID, "status", v.Status)
	return v, nil
}

func (s *Store) GetVerification(ctx context.Context, id string) (*domain.Verification, error) {
	var v domain.Verification
	found, err := kv.GetJSON(ctx, s.kv, verificationKey(id), &v)
	if err != nil {
		return nil, fmt.Errorf("load verification %s: %w", id, err)
	}
	if !found {
		return nil, errs.ErrNotFound
	}
	return &v, nil
}

// ListVerifications returns a report's verification history, newest
// first.
func (s *Store) ListVerifications(ctx context.Context, reportID string) ([]*domain.Verification, error) {
	r, err := s.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return s.verificationsFor(ctx, r)
}

// ReviewInput is the human-review patch applied to a verification.
type ReviewInput struct {
	ReviewStatus  domain.ReviewStatus
	Correctness   domain.ReviewCorrectness
	CorrectAnswer string
	ReviewNotes   string
	ReviewedBy    string
}

// UpdateReview attaches or revises the review on a verification. A
// revision of an already-reviewed record stamps editedAt.
func (s *Store) UpdateReview(ctx context.Context, verificationID string, in ReviewInput) (*domain.Verification, error) {
	if !in.ReviewStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown review status %q", errs.ErrInvalidArgument, in.ReviewStatus)
	}
	if in.Correctness != "" && !in.Correctness.Valid() {
		return nil, fmt.Errorf("%w: unknown correctness %q", errs.ErrInvalidArgument, in.Correctness)
	}
	v, err := s.GetVerification(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	review := &domain.VerificationReview{
		ReviewStatus:  in.ReviewStatus,
		Correctness:   in.Correctness,
		CorrectAnswer: in.CorrectAnswer,
		ReviewNotes:   in.ReviewNotes,
		ReviewedAt:    &now,
		ReviewedBy:    in.ReviewedBy,
	}
	if v.Review != nil && v.Review.ReviewedAt != nil {
		review.EditedAt = &now
	}
	v.Review = review
	if err := kv.SetJSON(ctx, s.kv, verificationKey(verificationID), v, reportTTL); err != nil {
		return nil, fmt.Errorf("persist verification %s: %w", verificationID, err)
	}
	return v, nil
}

// sameDay compares calendar days in UTC.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
