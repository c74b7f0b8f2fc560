package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgtbrain/cgt-brain-backend/internal/http/response"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/timelines"
	"github.com/cgtbrain/cgt-brain-backend/internal/timeline"
)

type TimelineHandler struct {
	timelines *timelines.Store
	log       *logger.Logger
}

func NewTimelineHandler(timelineStore *timelines.Store, log *logger.Logger) *TimelineHandler {
	return &TimelineHandler{timelines: timelineStore, log: log}
}

// Save stores a timeline behind a share ID. Sending an existing shareId
// overwrites that share in place.
func (h *TimelineHandler) Save(c *gin.Context) {
	var req struct {
		ShareID       string            `json:"shareId"`
		Properties    []json.RawMessage `json:"properties"`
		Events        []json.RawMessage `json:"events"`
		Notes         []json.RawMessage `json:"notes"`
		SavedAnalysis json.RawMessage   `json:"savedAnalysis"`
		Metadata      json.RawMessage   `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	shareID, err := h.timelines.Save(c.Request.Context(), timelines.SaveInput{
		ShareID:       req.ShareID,
		Properties:    req.Properties,
		Events:        req.Events,
		Notes:         req.Notes,
		SavedAnalysis: req.SavedAnalysis,
		Metadata:      req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"shareId": shareID})
}

// Load returns the timeline data behind a share ID. The envelope
// bookkeeping (version, timestamps, metadata) stays internal; viewers
// only get the properties and events.
func (h *TimelineHandler) Load(c *gin.Context) {
	shared, err := h.timelines.Load(c.Request.Context(), c.Param("shareId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"properties": shared.Properties,
		"events":     shared.Events,
	})
}

// ValidateEvent checks a prospective event against the ordering rules
// and returns either approval or a rejection with a suggested fix.
func (h *TimelineHandler) ValidateEvent(c *gin.Context) {
	var req struct {
		NewEvent       timeline.Event   `json:"newEvent"`
		ExistingEvents []timeline.Event `json:"existingEvents"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.NewEvent.Type == "" || req.NewEvent.Date.IsZero() {
		response.Fail(c, http.StatusBadRequest, "newEvent.type and newEvent.date are required")
		return
	}
	result := timeline.ValidateEvent(req.NewEvent, req.ExistingEvents)
	response.OK(c, gin.H{
		"valid":      result.Valid,
		"error":      result.Error,
		"suggestion": result.Suggestion,
	})
}

// BranchPositions computes the vertical layout for subdivided
// properties.
func (h *TimelineHandler) BranchPositions(c *gin.Context) {
	var req struct {
		Properties []timeline.Property `json:"properties"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	response.OK(c, gin.H{"positions": timeline.BranchPositions(req.Properties)})
}
