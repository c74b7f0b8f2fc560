package reports

import (
	"context"
	"math"

	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
)

// Stats aggregates the full report set for the admin dashboard. It walks
// the global index; with the index capped this stays bounded.
func (s *Store) Stats(ctx context.Context) (*domain.ReportStats, error) {
	idx, err := s.readIndex(ctx, indexKey)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, -1, 0)

	stats := &domain.ReportStats{
		ByStatus:   map[domain.ReportStatus]int{},
		BySource:   map[string]int{},
		ByProvider: map[string]int{},
	}
	var alignmentSum float64
	var alignmentN int

	for _, id := range idx {
		r, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		stats.TotalReports++
		stats.ByStatus[r.Status]++
		stats.BySource[string(r.Source)]++
		if r.LLMProvider != "" {
			stats.ByProvider[r.LLMProvider]++
		}
		if !r.CreatedAt.Before(weekAgo) {
			stats.ReportsThisWeek++
		}
		if !r.CreatedAt.Before(monthAgo) {
			stats.ReportsThisMonth++
		}
		if r.LatestVerificationID == "" {
			continue
		}
		v, err := s.GetVerification(ctx, r.LatestVerificationID)
		if err != nil {
			continue
		}
		if sameDay(v.VerifiedAt, now) {
			stats.VerificationsToday++
		}
		if v.Comparison != nil {
			alignmentSum += v.Comparison.MatchPercentage
			alignmentN++
		}
	}
	if alignmentN > 0 {
		stats.AverageAlignment = int(math.Round(alignmentSum / float64(alignmentN)))
	}
	return stats, nil
}
