package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/cgtmodel"
	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	"github.com/cgtbrain/cgt-brain-backend/internal/http/response"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/services/analysis"
)

type AnalysisHandler struct {
	analysis *analysis.Service
	model    *cgtmodel.Client
	log      *logger.Logger
}

func NewAnalysisHandler(svc *analysis.Service, model *cgtmodel.Client, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{analysis: svc, model: model, log: log}
}

// Calculate proxies a timeline to the model API and archives the result
// as a report. The upstream body is passed through as-is with the
// report ID appended, so the frontend keeps seeing the shapes it knows.
func (h *AnalysisHandler) Calculate(c *gin.Context) {
	var req struct {
		Properties   []json.RawMessage        `json:"properties"`
		Events       []json.RawMessage        `json:"events"`
		Notes        []json.RawMessage        `json:"notes"`
		Metadata     *domain.TimelineMetadata `json:"metadata"`
		LLMProvider  string                   `json:"llmProvider"`
		ResponseMode string                   `json:"responseMode"`
		ShareID      string                   `json:"shareId"`
		UserEmail    string                   `json:"userEmail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Properties) == 0 {
		response.Fail(c, http.StatusBadRequest, "properties are required")
		return
	}

	source := domain.ReportSource(c.GetHeader("x-report-source"))
	if !source.Valid() {
		source = domain.SourceApp
	}

	out, err := h.analysis.Analyze(c.Request.Context(), analysis.AnalyzeInput{
		Mode:        cgtmodel.ResponseMode(req.ResponseMode),
		LLMProvider: req.LLMProvider,
		Timeline: domain.TimelineInput{
			Properties: req.Properties,
			Events:     req.Events,
			Notes:      req.Notes,
			Metadata:   req.Metadata,
		},
		Source:    source,
		ShareID:   req.ShareID,
		UserEmail: req.UserEmail,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	body := gin.H{}
	if err := json.Unmarshal(out.Outcome.Raw, &body); err != nil {
		// Should not happen; the client only returns object bodies.
		response.Fail(c, http.StatusBadGateway, "model API returned an unreadable response")
		return
	}
	if out.ReportID != "" {
		body["reportId"] = out.ReportID
	}
	c.JSON(http.StatusOK, body)
}

// FollowUp relays a follow-up question within an existing analysis
// session.
func (h *AnalysisHandler) FollowUp(c *gin.Context) {
	var req struct {
		SessionID   string `json:"sessionId"`
		Question    string `json:"question"`
		LLMProvider string `json:"llmProvider"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SessionID == "" || req.Question == "" {
		response.Fail(c, http.StatusBadRequest, "sessionId and question are required")
		return
	}
	raw, err := h.model.FollowUp(c.Request.Context(), cgtmodel.FollowUpRequest{
		SessionID:   req.SessionID,
		Question:    req.Question,
		LLMProvider: req.LLMProvider,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// Providers relays the model API's provider list.
func (h *AnalysisHandler) Providers(c *gin.Context) {
	raw, err := h.model.Providers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}
