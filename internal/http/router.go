package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/cgtbrain/cgt-brain-backend/internal/http/handlers"
	httpMW "github.com/cgtbrain/cgt-brain-backend/internal/http/middleware"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AgentAuth *httpMW.AgentAuth
	AdminAuth *httpMW.AdminAuth

	HealthHandler        *httpH.HealthHandler
	AnalysisHandler      *httpH.AnalysisHandler
	TimelineHandler      *httpH.TimelineHandler
	AgentsHandler        *httpH.AgentsHandler
	AgentAuthHandler     *httpH.AgentAuthHandler
	SubmissionsHandler   *httpH.SubmissionsHandler
	ReportsHandler       *httpH.ReportsHandler
	VerificationsHandler *httpH.VerificationsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Analysis (public)
		if cfg.AnalysisHandler != nil {
			api.POST("/calculate-cgt", cfg.AnalysisHandler.Calculate)
			api.POST("/follow-up", cfg.AnalysisHandler.FollowUp)
			api.GET("/llm-providers", cfg.AnalysisHandler.Providers)
		}

		// CCH reachability (public)
		if cfg.HealthHandler != nil {
			api.GET("/cch-health", cfg.HealthHandler.CCHHealth)
		}

		// Shared timelines (public)
		if cfg.TimelineHandler != nil {
			api.POST("/timeline/save", cfg.TimelineHandler.Save)
			api.GET("/timeline/:shareId", cfg.TimelineHandler.Load)
			api.POST("/timeline/validate-event", cfg.TimelineHandler.ValidateEvent)
			api.POST("/timeline/branch-positions", cfg.TimelineHandler.BranchPositions)
		}

		// Agent directory (public)
		if cfg.AgentsHandler != nil {
			api.GET("/tax-agents/public", cfg.AgentsHandler.PublicList)
		}

		// Agent login (public)
		if cfg.AgentAuthHandler != nil {
			api.POST("/tax-agents/auth/login", cfg.AgentAuthHandler.Login)
		}

		// Submission intake (public)
		if cfg.SubmissionsHandler != nil {
			api.POST("/submissions", cfg.SubmissionsHandler.Create)
		}
	}

	agent := api.Group("/")
	{
		if cfg.AgentAuth != nil {
			agent.Use(cfg.AgentAuth.RequireAgent())
		}

		if cfg.AgentAuthHandler != nil {
			agent.POST("/tax-agents/auth/logout", cfg.AgentAuthHandler.Logout)
			agent.GET("/tax-agents/auth/session", cfg.AgentAuthHandler.Session)
			agent.GET("/tax-agents/profile", cfg.AgentAuthHandler.Profile)
			agent.PUT("/tax-agents/profile", cfg.AgentAuthHandler.UpdateProfile)
		}

		if cfg.SubmissionsHandler != nil {
			agent.GET("/submissions", cfg.SubmissionsHandler.List)
			agent.GET("/submissions/:id", cfg.SubmissionsHandler.Get)
			agent.PUT("/submissions/:id/status", cfg.SubmissionsHandler.SetStatus)
			agent.PUT("/submissions/:id/notes", cfg.SubmissionsHandler.SetNotes)
			agent.POST("/submissions/:id/feedback", cfg.SubmissionsHandler.SendFeedback)
		}
	}

	admin := api.Group("/admin")
	{
		if cfg.AdminAuth != nil {
			admin.Use(cfg.AdminAuth.RequireAdmin())
		}

		if cfg.ReportsHandler != nil {
			admin.GET("/reports", cfg.ReportsHandler.List)
			admin.POST("/reports", cfg.ReportsHandler.Create)
			admin.GET("/reports/:id", cfg.ReportsHandler.Get)
			admin.PATCH("/reports/:id", cfg.ReportsHandler.Update)
			admin.DELETE("/reports/:id", cfg.ReportsHandler.Delete)
			admin.POST("/reports/batch-delete", cfg.ReportsHandler.BatchDelete)
			admin.POST("/reports/delete-all", cfg.ReportsHandler.DeleteAll)
		}

		if cfg.VerificationsHandler != nil {
			admin.POST("/reports/:id/verify", cfg.VerificationsHandler.Verify)
			admin.GET("/reports/:id/verifications", cfg.VerificationsHandler.History)
			admin.PUT("/reports/:id/verifications/:verifId/review", cfg.VerificationsHandler.Review)
			admin.POST("/reports/batch-verify", cfg.VerificationsHandler.BatchVerify)
		}

		if cfg.SubmissionsHandler != nil {
			admin.GET("/submissions", cfg.SubmissionsHandler.AdminList)
		}
	}

	// Agent management sits on the admin credential, not the agent
	// session, so it hangs off its own group.
	adminAgents := api.Group("/tax-agents")
	{
		if cfg.AdminAuth != nil {
			adminAgents.Use(cfg.AdminAuth.RequireAdmin())
		}
		if cfg.AgentsHandler != nil {
			adminAgents.POST("", cfg.AgentsHandler.Create)
			adminAgents.GET("", cfg.AgentsHandler.List)
			adminAgents.GET("/:id", cfg.AgentsHandler.Get)
			adminAgents.PUT("/:id", cfg.AgentsHandler.Update)
			adminAgents.DELETE("/:id", cfg.AgentsHandler.Deactivate)
		}
	}

	return r
}
