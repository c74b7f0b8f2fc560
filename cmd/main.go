package main

import (
	"fmt"
	"os"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/cch"
	"github.com/cgtbrain/cgt-brain-backend/internal/clients/cgtmodel"
	"github.com/cgtbrain/cgt-brain-backend/internal/clients/kv"
	"github.com/cgtbrain/cgt-brain-backend/internal/clients/mailer"
	httpServer "github.com/cgtbrain/cgt-brain-backend/internal/http"
	httpH "github.com/cgtbrain/cgt-brain-backend/internal/http/handlers"
	httpMW "github.com/cgtbrain/cgt-brain-backend/internal/http/middleware"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/platform/envutil"
	"github.com/cgtbrain/cgt-brain-backend/internal/services/analysis"
	"github.com/cgtbrain/cgt-brain-backend/internal/services/submission"
	"github.com/cgtbrain/cgt-brain-backend/internal/services/verification"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/agents"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/reports"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/submissions"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/timelines"
)

func main() {
	// Logger
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Storage
	log.Info("Connecting to Redis...")
	kvStore, err := kv.NewRedis(log)
	if err != nil {
		log.Fatal("Redis init failed", "error", err)
	}
	defer kvStore.Close()

	// External clients
	modelClient := cgtmodel.New(log)
	cchClient := cch.New(log)
	mail := mailer.New(log)
	if !mail.Enabled() {
		log.Warn("RESEND_API_KEY not set, feedback email is disabled")
	}

	// Stores
	log.Info("Setting up stores...")
	reportStore := reports.New(kvStore, log)
	agentStore := agents.New(kvStore, log)
	timelineStore := timelines.New(kvStore, log)
	appBaseURL := envutil.String("APP_BASE_URL", "https://cgtbrain.com.au")
	subStore := submissions.New(kvStore, agentStore, timelineStore, appBaseURL, log)

	// Services
	log.Info("Setting up services...")
	analysisSvc := analysis.New(modelClient, reportStore, log)
	verificationSvc := verification.New(cchClient, reportStore, log)
	feedbackSvc := submission.New(subStore, agentStore, mail, log)

	// Handlers
	log.Info("Setting up handlers...")
	healthHandler := httpH.NewHealthHandler(reportStore, cchClient)
	analysisHandler := httpH.NewAnalysisHandler(analysisSvc, modelClient, log)
	timelineHandler := httpH.NewTimelineHandler(timelineStore, log)
	agentsHandler := httpH.NewAgentsHandler(agentStore, log)
	agentAuthHandler := httpH.NewAgentAuthHandler(agentStore, log)
	submissionsHandler := httpH.NewSubmissionsHandler(subStore, feedbackSvc, log)
	reportsHandler := httpH.NewReportsHandler(reportStore, log)
	verificationsHandler := httpH.NewVerificationsHandler(verificationSvc, reportStore, log)

	// Middleware
	agentAuth := httpMW.NewAgentAuth(agentStore, log)
	adminAuth := httpMW.NewAdminAuth(log)

	// Router
	router := httpServer.NewRouter(httpServer.RouterConfig{
		Log:                  log,
		AgentAuth:            agentAuth,
		AdminAuth:            adminAuth,
		HealthHandler:        healthHandler,
		AnalysisHandler:      analysisHandler,
		TimelineHandler:      timelineHandler,
		AgentsHandler:        agentsHandler,
		AgentAuthHandler:     agentAuthHandler,
		SubmissionsHandler:   submissionsHandler,
		ReportsHandler:       reportsHandler,
		VerificationsHandler: verificationsHandler,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
