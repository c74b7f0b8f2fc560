package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	"github.com/cgtbrain/cgt-brain-backend/internal/http/middleware"
	"github.com/cgtbrain/cgt-brain-backend/internal/http/response"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/services/submission"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/submissions"
)

type SubmissionsHandler struct {
	store    *submissions.Store
	feedback *submission.Service
	log      *logger.Logger
}

func NewSubmissionsHandler(store *submissions.Store, feedback *submission.Service, log *logger.Logger) *SubmissionsHandler {
	return &SubmissionsHandler{store: store, feedback: feedback, log: log}
}

// Create files a shared timeline with a tax agent. This is the one
// submission route end users hit, so it stays unauthenticated.
func (h *SubmissionsHandler) Create(c *gin.Context) {
	var req struct {
		TaxAgentID       string `json:"taxAgentId"`
		ShareID          string `json:"shareId"`
		UserEmail        string `json:"userEmail"`
		UserPhone        string `json:"userPhone"`
		PropertiesCount  int    `json:"propertiesCount"`
		EventsCount      int    `json:"eventsCount"`
		HasAnalysis      bool   `json:"hasAnalysis"`
		AnalysisProvider string `json:"analysisProvider"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sub, err := h.store.Create(c.Request.Context(), submissions.CreateInput{
		TaxAgentID:       req.TaxAgentID,
		ShareID:          req.ShareID,
		UserEmail:        req.UserEmail,
		UserPhone:        req.UserPhone,
		PropertiesCount:  req.PropertiesCount,
		EventsCount:      req.EventsCount,
		HasAnalysis:      req.HasAnalysis,
		AnalysisProvider: req.AnalysisProvider,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.log.Info("submission created", "submissionId", sub.ID, "agentId", sub.TaxAgentID)
	response.Created(c, gin.H{"submission": sub})
}

// List returns the authenticated agent's submissions, newest first.
func (h *SubmissionsHandler) List(c *gin.Context) {
	agent, ok := middleware.AgentFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	subs, err := h.store.ListByAgent(c.Request.Context(), agent.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"submissions": subs, "count": len(subs)})
}

// Get returns one submission. The first authorized read stamps
// viewedAt.
func (h *SubmissionsHandler) Get(c *gin.Context) {
	agent, ok := middleware.AgentFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	sub, err := h.store.GetForAgent(c.Request.Context(), c.Param("id"), agent.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"submission": sub})
}

// SetStatus moves a submission through its workflow.
func (h *SubmissionsHandler) SetStatus(c *gin.Context) {
	agent, ok := middleware.AgentFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var req struct {
		Status domain.SubmissionStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sub, err := h.store.SetStatus(c.Request.Context(), c.Param("id"), agent.ID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"submission": sub})
}

// SetNotes replaces the agent's private notes on a submission.
func (h *SubmissionsHandler) SetNotes(c *gin.Context) {
	agent, ok := middleware.AgentFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sub, err := h.store.SetNotes(c.Request.Context(), c.Param("id"), agent.ID, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"submission": sub})
}

// SendFeedback emails the submitting user and records the message.
func (h *SubmissionsHandler) SendFeedback(c *gin.Context) {
	agent, ok := middleware.AgentFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sub, err := h.feedback.SendFeedback(c.Request.Context(), c.Param("id"), agent.ID, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"submission": sub})
}

// AdminList returns every submission across all agents.
func (h *SubmissionsHandler) AdminList(c *gin.Context) {
	subs, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"submissions": subs, "count": len(subs)})
}
