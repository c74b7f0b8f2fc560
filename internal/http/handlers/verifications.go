package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	"github.com/cgtbrain/cgt-brain-backend/internal/http/response"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/services/verification"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/reports"
)

type VerificationsHandler struct {
	svc   *verification.Service
	store *reports.Store
	log   *logger.Logger
}

func NewVerificationsHandler(svc *verification.Service, store *reports.Store, log *logger.Logger) *VerificationsHandler {
	return &VerificationsHandler{svc: svc, store: store, log: log}
}

// Verify runs one report through CCH and returns the new verification
// record.
func (h *VerificationsHandler) Verify(c *gin.Context) {
	var req struct {
		VerifiedBy string `json:"verifiedBy"`
	}
	// The body is optional; an empty one means a plain admin-triggered run.
	_ = c.ShouldBindJSON(&req)
	if req.VerifiedBy == "" {
		req.VerifiedBy = "admin"
	}
	v, err := h.svc.VerifyReport(c.Request.Context(), c.Param("id"), req.VerifiedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"verification": v})
}

// BatchVerify runs up to the batch cap of reports sequentially.
func (h *VerificationsHandler) BatchVerify(c *gin.Context) {
	var req struct {
		ReportIDs []string `json:"reportIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	items, verified, failed, err := h.svc.VerifyBatch(c.Request.Context(), req.ReportIDs, "batch")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"results":  items,
		"verified": verified,
		"failed":   failed,
	})
}

// History lists a report's verification records, newest first.
func (h *VerificationsHandler) History(c *gin.Context) {
	vs, err := h.store.ListVerifications(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"verifications": vs, "count": len(vs)})
}

// Review attaches or revises a human review on a verification record.
func (h *VerificationsHandler) Review(c *gin.Context) {
	var req struct {
		ReviewStatus  domain.ReviewStatus      `json:"reviewStatus"`
		Correctness   domain.ReviewCorrectness `json:"correctness"`
		CorrectAnswer string                   `json:"correctAnswer"`
		ReviewNotes   string                   `json:"reviewNotes"`
		ReviewedBy    string                   `json:"reviewedBy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	verifID := c.Param("verifId")
	existing, err := h.store.GetVerification(c.Request.Context(), verifID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if existing.ReportID != c.Param("id") {
		response.Fail(c, http.StatusNotFound, "verification does not belong to this report")
		return
	}

	v, err := h.store.UpdateReview(c.Request.Context(), verifID, reports.ReviewInput{
		ReviewStatus:  req.ReviewStatus,
		Correctness:   req.Correctness,
		CorrectAnswer: req.CorrectAnswer,
		ReviewNotes:   req.ReviewNotes,
		ReviewedBy:    req.ReviewedBy,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"verification": v})
}
