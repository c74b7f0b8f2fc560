package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	"github.com/cgtbrain/cgt-brain-backend/internal/http/response"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/agents"
)

// AgentsHandler serves the public agent directory and the admin-side
// agent management.
type AgentsHandler struct {
	store *agents.Store
	log   *logger.Logger
}

func NewAgentsHandler(store *agents.Store, log *logger.Logger) *AgentsHandler {
	return &AgentsHandler{store: store, log: log}
}

// PublicList returns active agents in directory order: senior agents
// first, then by experience and name.
func (h *AgentsHandler) PublicList(c *gin.Context) {
	list, err := h.store.ListPublic(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"agents": list, "count": len(list)})
}

// Create registers a new agent account.
func (h *AgentsHandler) Create(c *gin.Context) {
	var req struct {
		Email    string           `json:"email"`
		Password string           `json:"password"`
		Name     string           `json:"name"`
		Role     domain.AgentRole `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	agent, err := h.store.Create(c.Request.Context(), agents.CreateInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.log.Info("agent created", "agentId", agent.ID)
	response.Created(c, gin.H{"agent": agent.AdminView()})
}

// List returns every agent, active or not, without password hashes.
func (h *AgentsHandler) List(c *gin.Context) {
	list, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	views := make([]*domain.TaxAgentAdminView, 0, len(list))
	for _, a := range list {
		views = append(views, a.AdminView())
	}
	response.OK(c, gin.H{"agents": views, "count": len(views)})
}

func (h *AgentsHandler) Get(c *gin.Context) {
	agent, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"agent": agent.AdminView()})
}

// Update changes account-level fields: name, email, role, password,
// active flag.
func (h *AgentsHandler) Update(c *gin.Context) {
	var req struct {
		Name     *string           `json:"name"`
		Email    *string           `json:"email"`
		Role     *domain.AgentRole `json:"role"`
		Password *string           `json:"password"`
		IsActive *bool             `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	agent, err := h.store.AdminUpdate(c.Request.Context(), c.Param("id"), agents.AdminUpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"agent": agent.AdminView()})
}

// Deactivate soft-disables an account. The record stays for audit; the
// agent just cannot log in or appear in the directory.
func (h *AgentsHandler) Deactivate(c *gin.Context) {
	if err := h.store.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	h.log.Info("agent deactivated", "agentId", c.Param("id"))
	response.OK(c, gin.H{"deactivated": true})
}
