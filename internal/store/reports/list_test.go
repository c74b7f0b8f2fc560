package reports

import (
	"context"
	"testing"
	"time"

	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
)

func seedReports(t *testing.T, st *Store, clock *time.Time, n int) []*domain.Report {
	t.Helper()
	out := make([]*domain.Report, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, mustCreate(t, st, CreateInput{LLMProvider: "claude"}))
		*clock = clock.Add(time.Minute)
	}
	return out
}

func TestListNewestFirstByDefault(t *testing.T) {
	st, clock := newTestStore(t)
	rs := seedReports(t, st, clock, 3)

	res, err := st.List(context.Background(), ListFilters{}, Pagination{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 3 || len(res.Items) != 3 {
		t.Fatalf("total/items = %d/%d", res.Total, len(res.Items))
	}
	if res.Items[0].ID != rs[2].ID || res.Items[2].ID != rs[0].ID {
		t.Fatalf("default order not createdAt desc: %s first", res.Items[0].ID)
	}
}

func TestListPagination(t *testing.T) {
	st, clock := newTestStore(t)
	seedReports(t, st, clock, 7)
	ctx := context.Background()

	res, err := st.List(ctx, ListFilters{}, Pagination{Page: 3, Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 7 || len(res.Items) != 1 {
		t.Fatalf("last page: total=%d items=%d, want 7/1", res.Total, len(res.Items))
	}

	res, err = st.List(ctx, ListFilters{}, Pagination{Page: 9, Limit: 3})
	if err != nil {
		t.Fatalf("list beyond range: %v", err)
	}
	if res.Total != 7 || len(res.Items) != 0 {
		t.Fatalf("page beyond range: total=%d items=%d, want 7/0", res.Total, len(res.Items))
	}
}

func TestListLimitCappedAt100(t *testing.T) {
	st, _ := newTestStore(t)
	res, err := st.List(context.Background(), ListFilters{}, Pagination{Page: 1, Limit: 500})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Limit != 100 {
		t.Fatalf("limit = %d, want 100", res.Limit)
	}
}

func TestListFiltersAreConjunctive(t *testing.T) {
	st, clock := newTestStore(t)
	ctx := context.Background()

	adminVerified := mustCreate(t, st, CreateInput{Source: domain.SourceAdmin})
	if _, err := st.AddVerification(ctx, adminVerified.ID, VerificationInput{Status: domain.VerificationSuccess}); err != nil {
		t.Fatalf("verify: %v", err)
	}
	*clock = clock.Add(time.Minute)
	mustCreate(t, st, CreateInput{Source: domain.SourceAdmin}) // admin, unverified
	*clock = clock.Add(time.Minute)
	appVerified := mustCreate(t, st, CreateInput{Source: domain.SourceApp})
	if _, err := st.AddVerification(ctx, appVerified.ID, VerificationInput{Status: domain.VerificationSuccess}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	yes := true
	res, err := st.List(ctx, ListFilters{Source: domain.SourceAdmin, HasVerification: &yes}, Pagination{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 1 || res.Items[0].ID != adminVerified.ID {
		t.Fatalf("conjunction failed: total=%d", res.Total)
	}
}

func TestListStatusSetFilter(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	a := mustCreate(t, st, CreateInput{})
	b := mustCreate(t, st, CreateInput{})
	mustCreate(t, st, CreateInput{})
	if _, err := st.SetStatus(ctx, a.ID, domain.ReportAnalyzed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, err := st.SetStatus(ctx, b.ID, domain.ReportFailed); err != nil {
		t.Fatalf("set status: %v", err)
	}

	res, err := st.List(ctx, ListFilters{Statuses: []domain.ReportStatus{domain.ReportAnalyzed, domain.ReportFailed}}, Pagination{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("status set filter total = %d, want 2", res.Total)
	}
}

func TestListDateRangeInclusive(t *testing.T) {
	st, clock := newTestStore(t)
	ctx := context.Background()

	early := mustCreate(t, st, CreateInput{})
	*clock = clock.Add(48 * time.Hour)
	late := mustCreate(t, st, CreateInput{})

	from := early.CreatedAt
	to := early.CreatedAt
	res, err := st.List(ctx, ListFilters{DateFrom: &from, DateTo: &to}, Pagination{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 1 || res.Items[0].ID != early.ID {
		t.Fatalf("inclusive bounds: total=%d", res.Total)
	}
	_ = late
}

func TestListSearch(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	match := mustCreate(t, st, CreateInput{
		TimelineData: timelineWithAddress("7 Collins Street Melbourne"),
	})
	mustCreate(t, st, CreateInput{TimelineData: timelineWithAddress("2 George St Sydney")})

	res, err := st.List(ctx, ListFilters{Search: "collins"}, Pagination{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 1 || res.Items[0].ID != match.ID {
		t.Fatalf("search: total=%d", res.Total)
	}

	res, err = st.List(ctx, ListFilters{Search: "no-such-suburb"}, Pagination{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 0 {
		t.Fatalf("search miss: total=%d", res.Total)
	}
}

func TestListSortByNetCapitalGain(t *testing.T) {
	st, clock := newTestStore(t)
	ctx := context.Background()

	big := mustCreate(t, st, CreateInput{})
	*clock = clock.Add(time.Minute)
	small := mustCreate(t, st, CreateInput{})
	*clock = clock.Add(time.Minute)
	none := mustCreate(t, st, CreateInput{})

	set := func(id string, v float64) {
		if _, err := st.AttachAnalysis(ctx, id, AnalysisResult{Succeeded: true, NetCapitalGain: &v}); err != nil {
			t.Fatalf("attach analysis: %v", err)
		}
	}
	set(big.ID, 150000)
	set(small.ID, 2500)

	res, err := st.List(ctx, ListFilters{SortBy: "netCapitalGain", SortDir: "desc"}, Pagination{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(res.Items) != 3 {
		t.Fatalf("items = %d", len(res.Items))
	}
	if res.Items[0].ID != big.ID || res.Items[1].ID != small.ID || res.Items[2].ID != none.ID {
		t.Fatalf("sort order: %s, %s, %s", res.Items[0].ID, res.Items[1].ID, res.Items[2].ID)
	}
}

func TestListSummaryCarriesLatestVerification(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	r := mustCreate(t, st, CreateInput{})
	if _, err := st.AddVerification(ctx, r.ID, VerificationInput{
		Status:     domain.VerificationSuccess,
		Comparison: &domain.ComparisonResult{OverallAlignment: "high", MatchPercentage: 88},
	}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	res, err := st.List(ctx, ListFilters{}, Pagination{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lv := res.Items[0].LatestVerification
	if lv == nil || lv.Alignment != "high" || lv.MatchPercentage != 88 {
		t.Fatalf("latest verification summary = %+v", lv)
	}
	if lv.ReviewStatus != domain.ReviewPending {
		t.Fatalf("review status = %q, want pending", lv.ReviewStatus)
	}
}

func TestStats(t *testing.T) {
	st, clock := newTestStore(t)
	ctx := context.Background()

	old := mustCreate(t, st, CreateInput{Source: domain.SourceApp, LLMProvider: "openai"})
	_ = old
	*clock = clock.Add(10 * 24 * time.Hour)
	recent := mustCreate(t, st, CreateInput{Source: domain.SourceAdmin, LLMProvider: "claude"})
	if _, err := st.AddVerification(ctx, recent.ID, VerificationInput{
		Status:     domain.VerificationSuccess,
		Comparison: &domain.ComparisonResult{MatchPercentage: 90},
	}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalReports != 2 {
		t.Fatalf("total = %d", stats.TotalReports)
	}
	if stats.ByStatus[domain.ReportVerified] != 1 || stats.ByStatus[domain.ReportPending] != 1 {
		t.Fatalf("byStatus = %v", stats.ByStatus)
	}
	if stats.BySource["admin"] != 1 || stats.ByProvider["claude"] != 1 {
		t.Fatalf("bySource=%v byProvider=%v", stats.BySource, stats.ByProvider)
	}
	if stats.ReportsThisWeek != 1 || stats.ReportsThisMonth != 2 {
		t.Fatalf("week/month = %d/%d", stats.ReportsThisWeek, stats.ReportsThisMonth)
	}
	if stats.VerificationsToday != 1 || stats.AverageAlignment != 90 {
		t.Fatalf("today=%d avg=%d", stats.VerificationsToday, stats.AverageAlignment)
	}
}
