package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/kv"
	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/ids"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
)

const (
	reportKeyPrefix       = "cgt_report:"
	verificationKeyPrefix = "cgt_verification:"
	indexKey              = "cgt_reports_index"
	statusIndexPrefix     = "cgt_reports_by_status:"

	// Reports and verifications expire after a year; the indexes are
	// trimmed on write instead.
	reportTTL = 365 * 24 * time.Hour

	// Hard cap on the global index. Oldest IDs fall off the end; their
	// records are left to expire via TTL and are skipped on read.
	maxIndexSize = 10000
)

func reportKey(id string) string       { return reportKeyPrefix + id }
func verificationKey(id string) string { return verificationKeyPrefix + id }
func statusKey(s domain.ReportStatus) string {
	return statusIndexPrefix + string(s)
}

// Store persists CGT reports and their verification records in the KV
// backend. The global index and per-status indexes are plain JSON arrays
// of report IDs, newest first.
type Store struct {
	kv  kv.Store
	log *logger.Logger
	now func() time.Time
}

func New(kvStore kv.Store, log *logger.Logger) *Store {
	return &Store{kv: kvStore, log: log, now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// CreateInput carries the caller-supplied fields of a new report.
type CreateInput struct {
	Source       domain.ReportSource
	LLMProvider  string
	Status       domain.ReportStatus
	TimelineData domain.TimelineInput
	ShareID      string
	UserEmail    string
	Notes        string
	Tags         []string
}

func (s *Store) Create(ctx context.Context, in CreateInput) (*domain.Report, error) {
	if len(in.TimelineData.Properties) == 0 {
		return nil, fmt.Errorf("%w: timelineData.properties is required", errs.ErrInvalidArgument)
	}
	if in.TimelineData.Events == nil {
		return nil, fmt.Errorf("%w: timelineData.events is required", errs.ErrInvalidArgument)
	}
	if in.Source == "" {
		in.Source = domain.SourceApp
	}
	if !in.Source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", errs.ErrInvalidArgument, in.Source)
	}
	if in.Status == "" {
		in.Status = domain.ReportPending
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", errs.ErrInvalidArgument, in.Status)
	}

	now := s.now().UTC()
	r := &domain.Report{
		ID:              ids.NewReportID(),
		CreatedAt:       now,
		UpdatedAt:       now,
		Source:          in.Source,
		LLMProvider:     in.LLMProvider,
		Status:          in.Status,
		TimelineData:    in.TimelineData,
		ShareID:         in.ShareID,
		UserEmail:       in.UserEmail,
		Notes:           in.Notes,
		Tags:            in.Tags,
		VerificationIDs: []string{},
		PropertyCount:   len(in.TimelineData.Properties),
		EventCount:      len(in.TimelineData.Events),
	}
	r.PrimaryPropertyAddress = primaryAddress(in.TimelineData.Properties)

	if err := kv.SetJSON(ctx, s.kv, reportKey(r.ID), r, reportTTL); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}
	if err := s.indexPrepend(ctx, indexKey, r.ID); err != nil {
		return nil, err
	}
	if err := s.indexPrepend(ctx, statusKey(r.Status), r.ID); err != nil {
		return nil, err
	}
	s.log.Info("report created", "reportId", r.ID, "source", r.Source, "provider", r.LLMProvider)
	return r, nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Report, error) {
	var r domain.Report
	found, err := kv.GetJSON(ctx, s.kv, reportKey(id), &r)
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}
	if !found {
		return nil, errs.ErrNotFound
	}
	return &r, nil
}

// GetWithVerifications loads a report together with its verification
// history, newest first. Dangling verification IDs are skipped.
func (s *Store) GetWithVerifications(ctx context.Context, id string) (*domain.ReportWithVerifications, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	vs, err := s.verificationsFor(ctx, r)
	if err != nil {
		return nil, err
	}
	return &domain.ReportWithVerifications{Report: *r, Verifications: vs}, nil
}

// UpdateInput is the patchable surface of a report. Nil fields are left
// untouched.
type UpdateInput struct {
	Notes     *string
	Tags      *[]string
	UserEmail *string
}

func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (*domain.Report, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Notes != nil {
		r.Notes = *in.Notes
	}
	if in.Tags != nil {
		r.Tags = *in.Tags
	}
	if in.UserEmail != nil {
		r.UserEmail = *in.UserEmail
	}
	r.UpdatedAt = s.now().UTC()
	if err := kv.SetJSON(ctx, s.kv, reportKey(id), r, reportTTL); err != nil {
		return nil, fmt.Errorf("persist report %s: %w", id, err)
	}
	return r, nil
}

// SetStatus moves a report between lifecycle states and keeps the
// per-status indexes in step.
func (s *Store) SetStatus(ctx context.Context, id string, status domain.ReportStatus) (*domain.Report, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", errs.ErrInvalidArgument, status)
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == status {
		return r, nil
	}
	old := r.Status
	r.Status = status
	r.UpdatedAt = s.now().UTC()
	if err := kv.SetJSON(ctx, s.kv, reportKey(id), r, reportTTL); err != nil {
		return nil, fmt.Errorf("persist report %s: %w", id, err)
	}
	if err := s.indexRemove(ctx, statusKey(old), id); err != nil {
		return nil, err
	}
	if err := s.indexPrepend(ctx, statusKey(status), id); err != nil {
		return nil, err
	}
	return r, nil
}

// AnalysisResult is what the analysis service attaches once the model run
// finishes.
type AnalysisResult struct {
	Response           []byte
	VerificationPrompt string
	NetCapitalGain     *float64
	Succeeded          bool
}

func (s *Store) AttachAnalysis(ctx context.Context, id string, res AnalysisResult) (*domain.Report, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	old := r.Status
	r.AnalysisResponse = res.Response
	r.VerificationPrompt = res.VerificationPrompt
	r.NetCapitalGain = res.NetCapitalGain
	r.AnalyzedAt = &now
	if res.Succeeded {
		r.Status = domain.ReportAnalyzed
	} else {
		r.Status = domain.ReportFailed
	}
	r.UpdatedAt = now
	if err := kv.SetJSON(ctx, s.kv, reportKey(id), r, reportTTL); err != nil {
		return nil, fmt.Errorf("persist report %s: %w", id, err)
	}
	if old != r.Status {
		if err := s.indexRemove(ctx, statusKey(old), id); err != nil {
			return nil, err
		}
		if err := s.indexPrepend(ctx, statusKey(r.Status), id); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Delete removes a report, its verification records and its index
// entries. Returns false when the report was already gone.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		if errs.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	keys := []string{reportKey(id)}
	for _, vid := range r.VerificationIDs {
		keys = append(keys, verificationKey(vid))
	}
	if err := s.kv.Del(ctx, keys...); err != nil {
		return false, fmt.Errorf("delete report %s: %w", id, err)
	}
	if err := s.indexRemove(ctx, indexKey, id); err != nil {
		return false, err
	}
	if err := s.indexRemove(ctx, statusKey(r.Status), id); err != nil {
		return false, err
	}
	s.log.Info("report deleted", "reportId", id, "verifications", len(r.VerificationIDs))
	return true, nil
}

// BatchResult is the per-item outcome of a batch delete or verify.
type BatchResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DeleteBatch attempts every ID independently. One bad ID never aborts
// the rest.
func (s *Store) DeleteBatch(ctx context.Context, reportIDs []string) (results []BatchResult, deleted, failed int) {
	for _, id := range reportIDs {
		ok, err := s.Delete(ctx, id)
		switch {
		case err != nil:
			s.log.Warn("batch delete item failed", "reportId", id, "error", err)
			results = append(results, BatchResult{ID: id, Error: err.Error()})
			failed++
		case !ok:
			results = append(results, BatchResult{ID: id, Error: "report not found"})
			failed++
		default:
			results = append(results, BatchResult{ID: id, Success: true})
			deleted++
		}
	}
	return results, deleted, failed
}

// DeleteAll wipes every indexed report. Best effort: items are attempted
// independently and the counts report what actually happened.
func (s *Store) DeleteAll(ctx context.Context) (deleted, failed int, err error) {
	idx, err := s.readIndex(ctx, indexKey)
	if err != nil {
		return 0, 0, err
	}
	for _, id := range idx {
		ok, derr := s.Delete(ctx, id)
		if derr != nil {
			s.log.Warn("delete-all item failed", "reportId", id, "error", derr)
			failed++
			continue
		}
		if ok {
			deleted++
		}
	}
	return deleted, failed, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

func (s *Store) verificationsFor(ctx context.Context, r *domain.Report) ([]*domain.Verification, error) {
	vs := make([]*domain.Verification, 0, len(r.VerificationIDs))
	// IDs are appended in creation order; walk backwards for newest first.
	for i := len(r.VerificationIDs) - 1; i >= 0; i-- {
		var v domain.Verification
		found, err := kv.GetJSON(ctx, s.kv, verificationKey(r.VerificationIDs[i]), &v)
		if err != nil {
			return nil, fmt.Errorf("load verification %s: %w", r.VerificationIDs[i], err)
		}
		if !found {
			continue
		}
		vs = append(vs, &v)
	}
	return vs, nil
}

func primaryAddress(properties []json.RawMessage) string {
	if len(properties) == 0 {
		return ""
	}
	var p struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(properties[0], &p); err != nil {
		return ""
	}
	if p.Address != "" {
		return p.Address
	}
	return p.Name
}
