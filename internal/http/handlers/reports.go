package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	"github.com/cgtbrain/cgt-brain-backend/internal/http/response"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/reports"
)

// Batch deletes are capped well below the list page size; the admin UI
// only ever selects within one page.
const maxBatchDelete = 50

type ReportsHandler struct {
	store *reports.Store
	log   *logger.Logger
}

func NewReportsHandler(store *reports.Store, log *logger.Logger) *ReportsHandler {
	return &ReportsHandler{store: store, log: log}
}

// List returns one filtered, sorted page of report summaries. Passing
// stats=true includes the dashboard aggregates in the same response.
func (h *ReportsHandler) List(c *gin.Context) {
	filters, err := parseListFilters(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.store.List(c.Request.Context(), filters, reports.Pagination{Page: page, Limit: limit})
	if err != nil {
		response.Error(c, err)
		return
	}
	payload := gin.H{
		"items": result.Items,
		"total": result.Total,
		"page":  result.Page,
		"limit": result.Limit,
	}
	if c.Query("stats") == "true" {
		stats, err := h.store.Stats(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		payload["stats"] = stats
	}
	response.OK(c, payload)
}

func parseListFilters(c *gin.Context) (reports.ListFilters, error) {
	var f reports.ListFilters
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			f.Statuses = append(f.Statuses, domain.ReportStatus(strings.TrimSpace(s)))
		}
	}
	f.Source = domain.ReportSource(c.Query("source"))
	f.LLMProvider = c.Query("llmProvider")
	f.Search = c.Query("search")
	f.SortBy = c.Query("sortBy")
	f.SortDir = c.Query("sortDir")
	if raw := c.Query("dateFrom"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, badQueryParam("dateFrom")
		}
		f.DateFrom = &t
	}
	if raw := c.Query("dateTo"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, badQueryParam("dateTo")
		}
		f.DateTo = &t
	}
	if raw := c.Query("hasVerification"); raw != "" {
		v := raw == "true"
		f.HasVerification = &v
	}
	return f, nil
}

// Create archives a report directly, without going through the model
// API. The admin UI uses it to import externally produced analyses.
func (h *ReportsHandler) Create(c *gin.Context) {
	var req struct {
		Source       domain.ReportSource  `json:"source"`
		LLMProvider  string               `json:"llmProvider"`
		Status       domain.ReportStatus  `json:"status"`
		TimelineData domain.TimelineInput `json:"timelineData"`
		ShareID      string               `json:"shareId"`
		UserEmail    string               `json:"userEmail"`
		Notes        string               `json:"notes"`
		Tags         []string             `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	r, err := h.store.Create(c.Request.Context(), reports.CreateInput{
		Source:       req.Source,
		LLMProvider:  req.LLMProvider,
		Status:       req.Status,
		TimelineData: req.TimelineData,
		ShareID:      req.ShareID,
		UserEmail:    req.UserEmail,
		Notes:        req.Notes,
		Tags:         req.Tags,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"report": r})
}

// Get returns a report with its full verification history.
func (h *ReportsHandler) Get(c *gin.Context) {
	r, err := h.store.GetWithVerifications(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"report": r})
}

// Update patches the annotation fields. Everything else on a report is
// immutable through this surface.
func (h *ReportsHandler) Update(c *gin.Context) {
	var req struct {
		Notes     *string   `json:"notes"`
		Tags      *[]string `json:"tags"`
		UserEmail *string   `json:"userEmail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	r, err := h.store.Update(c.Request.Context(), c.Param("id"), reports.UpdateInput{
		Notes:     req.Notes,
		Tags:      req.Tags,
		UserEmail: req.UserEmail,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"report": r})
}

// Delete removes a report and its verification records.
func (h *ReportsHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	deleted, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !deleted {
		response.Fail(c, http.StatusNotFound, "report not found")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// BatchDelete removes up to maxBatchDelete reports, reporting each
// outcome individually.
func (h *ReportsHandler) BatchDelete(c *gin.Context) {
	var req struct {
		ReportIDs []string `json:"reportIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.ReportIDs) == 0 {
		response.Fail(c, http.StatusBadRequest, "reportIds are required")
		return
	}
	if len(req.ReportIDs) > maxBatchDelete {
		response.Fail(c, http.StatusBadRequest, "at most "+strconv.Itoa(maxBatchDelete)+" reports per batch")
		return
	}
	results, deleted, failed := h.store.DeleteBatch(c.Request.Context(), req.ReportIDs)
	response.OK(c, gin.H{
		"results": results,
		"deleted": deleted,
		"failed":  failed,
	})
}

// DeleteAll wipes every stored report. There is deliberately no
// confirmation here; the admin UI owns that.
func (h *ReportsHandler) DeleteAll(c *gin.Context) {
	deleted, failed, err := h.store.DeleteAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.log.Warn("all reports deleted", "deleted", deleted, "failed", failed)
	response.OK(c, gin.H{"deleted": deleted, "failed": failed})
}

func badQueryParam(name string) error {
	return fmt.Errorf("%w: %s must be an RFC 3339 timestamp", errs.ErrInvalidArgument, name)
}
