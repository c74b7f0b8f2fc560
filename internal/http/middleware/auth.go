package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/agents"
)

const (
	ctxAgent        = "authAgent"
	ctxSessionToken = "authSessionToken"
)

// AgentAuth guards routes that require a logged-in tax agent.
type AgentAuth struct {
	agents *agents.Store
	log    *logger.Logger
}

func NewAgentAuth(agentStore *agents.Store, log *logger.Logger) *AgentAuth {
	return &AgentAuth{agents: agentStore, log: log}
}

// RequireAgent resolves the bearer token to an active agent and stores
// both on the request context. Anything short of a valid session aborts
// with 401.
func (m *AgentAuth) RequireAgent() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			return
		}
		agent, err := m.agents.VerifySession(c.Request.Context(), token)
		if err != nil {
			m.log.Debug("session rejected", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or expired session"})
			return
		}
		c.Set(ctxAgent, agent)
		c.Set(ctxSessionToken, token)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// AgentFrom returns the authenticated agent set by RequireAgent.
func AgentFrom(c *gin.Context) (*domain.TaxAgent, bool) {
	v, ok := c.Get(ctxAgent)
	if !ok {
		return nil, false
	}
	agent, ok := v.(*domain.TaxAgent)
	return agent, ok
}

// SessionTokenFrom returns the bearer token behind the current request.
func SessionTokenFrom(c *gin.Context) string {
	return c.GetString(ctxSessionToken)
}
