package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgtbrain/cgt-brain-backend/internal/http/middleware"
	"github.com/cgtbrain/cgt-brain-backend/internal/http/response"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/agents"
)

// AgentAuthHandler covers agent login, session management and the
// agent's own profile.
type AgentAuthHandler struct {
	store *agents.Store
	log   *logger.Logger
}

func NewAgentAuthHandler(store *agents.Store, log *logger.Logger) *AgentAuthHandler {
	return &AgentAuthHandler{store: store, log: log}
}

// Login issues a bearer token. Wrong email and wrong password produce
// the same answer.
func (h *AgentAuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	token, agent, err := h.store.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.log.Info("agent login", "agentId", agent.ID)
	response.OK(c, gin.H{"token": token, "agent": agent.AdminView()})
}

// Logout deletes the session behind the presented token.
func (h *AgentAuthHandler) Logout(c *gin.Context) {
	if err := h.store.Logout(c.Request.Context(), middleware.SessionTokenFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"loggedOut": true})
}

// Session confirms the token is still valid and returns its agent.
func (h *AgentAuthHandler) Session(c *gin.Context) {
	agent, ok := middleware.AgentFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	response.OK(c, gin.H{"agent": agent.AdminView()})
}

// Profile returns the authenticated agent's own record.
func (h *AgentAuthHandler) Profile(c *gin.Context) {
	agent, ok := middleware.AgentFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	response.OK(c, gin.H{"agent": agent.AdminView()})
}

// UpdateProfile lets an agent edit their public-facing fields. Account
// fields like email and role stay admin-only.
func (h *AgentAuthHandler) UpdateProfile(c *gin.Context) {
	agent, ok := middleware.AgentFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var req struct {
		Name            *string   `json:"name"`
		PhotoBase64     *string   `json:"photoBase64"`
		Bio             *string   `json:"bio"`
		Certifications  *[]string `json:"certifications"`
		ExperienceYears *int      `json:"experienceYears"`
		Specializations *[]string `json:"specializations"`
		ContactPhone    *string   `json:"contactPhone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	updated, err := h.store.UpdateProfile(c.Request.Context(), agent.ID, agents.ProfileInput{
		Name:            req.Name,
		PhotoBase64:     req.PhotoBase64,
		Bio:             req.Bio,
		Certifications:  req.Certifications,
		ExperienceYears: req.ExperienceYears,
		Specializations: req.Specializations,
		ContactPhone:    req.ContactPhone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"agent": updated.AdminView()})
}
