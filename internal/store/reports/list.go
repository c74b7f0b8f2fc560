package reports

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListFilters are conjunctive: a report must satisfy every populated
// predicate to be included.
type ListFilters struct {
	Statuses        []domain.ReportStatus
	Source          domain.ReportSource
	LLMProvider     string
	DateFrom        *time.Time // inclusive, on createdAt
	DateTo          *time.Time // inclusive, on createdAt
	HasVerification *bool
	Search          string

	SortBy  string // createdAt | updatedAt | netCapitalGain | status
	SortDir string // asc | desc (default desc)
}

type Pagination struct {
	Page  int // 1-indexed
	Limit int
}

func (p Pagination) normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

type ListResult struct {
	Items []*domain.ReportSummary `json:"items"`
	Total int                     `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}

// List walks the global index, applies the filters, sorts, and returns
// one page. Total counts the filtered set, not the page. Index entries
// whose record has expired are skipped.
func (s *Store) List(ctx context.Context, f ListFilters, p Pagination) (*ListResult, error) {
	p = p.normalize()

	idx, err := s.readIndex(ctx, indexKey)
	if err != nil {
		return nil, err
	}

	matched := make([]*domain.Report, 0, len(idx))
	for _, id := range idx {
		r, err := s.Get(ctx, id)
		if err != nil {
			continue // expired or dangling
		}
		if f.matches(r) {
			matched = append(matched, r)
		}
	}

	sortReports(matched, f.SortBy, f.SortDir)

	total := len(matched)
	start := (p.Page - 1) * p.Limit
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}

	items := make([]*domain.ReportSummary, 0, end-start)
	for _, r := range matched[start:end] {
		items = append(items, s.summarize(ctx, r))
	}
	return &ListResult{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func (f ListFilters) matches(r *domain.Report) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, st := range f.Statuses {
			if r.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Source != "" && r.Source != f.Source {
		return false
	}
	if f.LLMProvider != "" && !strings.EqualFold(r.LLMProvider, f.LLMProvider) {
		return false
	}
	if f.DateFrom != nil && r.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && r.CreatedAt.After(*f.DateTo) {
		return false
	}
	if f.HasVerification != nil && (r.VerificationCount > 0) != *f.HasVerification {
		return false
	}
	if f.Search != "" && !matchesSearch(r, f.Search) {
		return false
	}
	return true
}

func matchesSearch(r *domain.Report, q string) bool {
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(r.PrimaryPropertyAddress), q) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Notes), q) {
		return true
	}
	if strings.Contains(strings.ToLower(r.UserEmail), q) {
		return true
	}
	for _, t := range r.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func sortReports(rs []*domain.Report, by, dir string) {
	desc := dir != "asc"
	less := func(a, b *domain.Report) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch by {
	case "updatedAt":
		less = func(a, b *domain.Report) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case "netCapitalGain":
		// Reports without a figure sort below reports with one.
		less = func(a, b *domain.Report) bool {
			switch {
			case a.NetCapitalGain == nil && b.NetCapitalGain == nil:
				return a.CreatedAt.Before(b.CreatedAt)
			case a.NetCapitalGain == nil:
				return true
			case b.NetCapitalGain == nil:
				return false
			}
			return *a.NetCapitalGain < *b.NetCapitalGain
		}
	case "status":
		less = func(a, b *domain.Report) bool {
			if a.Status != b.Status {
				return a.Status < b.Status
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if desc {
			return less(rs[j], rs[i])
		}
		return less(rs[i], rs[j])
	})
}

func (s *Store) summarize(ctx context.Context, r *domain.Report) *domain.ReportSummary {
	sum := &domain.ReportSummary{
		ID:                     r.ID,
		CreatedAt:              r.CreatedAt,
		Source:                 r.Source,
		LLMProvider:            r.LLMProvider,
		Status:                 r.Status,
		NetCapitalGain:         r.NetCapitalGain,
		PropertyCount:          r.PropertyCount,
		PrimaryPropertyAddress: r.PrimaryPropertyAddress,
		VerificationCount:      r.VerificationCount,
	}
	if r.LatestVerificationID == "" {
		return sum
	}
	v, err := s.GetVerification(ctx, r.LatestVerificationID)
	if err != nil {
		return sum
	}
	lv := &domain.LatestVerificationSummary{VerifiedAt: v.VerifiedAt}
	if v.Comparison != nil {
		lv.Alignment = v.Comparison.OverallAlignment
		lv.MatchPercentage = v.Comparison.MatchPercentage
	}
	if v.Review != nil {
		lv.ReviewStatus = v.Review.ReviewStatus
	}
	sum.LatestVerification = lv
	return sum
}
