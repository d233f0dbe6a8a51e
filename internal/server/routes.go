// Package server contain implementation of go-gin-server and each route handlers
package server

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	// Load env
	_ "github.com/joho/godotenv/autoload"

	// Init swagger doc
	_ "hireops-backend/docs"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"hireops-backend/internal/controller/application"
	"hireops-backend/internal/controller/candidate"
	"hireops-backend/internal/controller/inbox"
	"hireops-backend/internal/controller/job"
	"hireops-backend/internal/controller/report"
	screeningctl "hireops-backend/internal/controller/screening"
	"hireops-backend/internal/controller/settings"
	"hireops-backend/internal/middleware"
)

// RegisterRoutes will register each http endpoint routes to bound Server instance
func (s *MyServer) RegisterRoutes() http.Handler {
	r := gin.Default()

	allowOrginsStr := os.Getenv("ALLOW_ORIGIN")
	allowOrgins := strings.Split(allowOrginsStr, ",")

	jobCtl := job.NewController(s.DB, s.Agents.Generator)
	candidateCtl := candidate.NewController(s.DB, s.Orchestrator)
	inboxCtl := inbox.NewController(s.DB, s.Orchestrator)
	applicationCtl := application.NewController(s.DB, s.Orchestrator)
	screeningCtl := screeningctl.NewController(s.DB, s.Screening)
	reportCtl := report.NewController(s.DB)
	settingsCtl := settings.NewController(s.DB)

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrgins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/health", s.healthHandler)
	v1 := r.Group("/api/v1")
	{
		jobRoute := v1.Group("/jobs")
		{
			jobRoute.POST("", jobCtl.CreateJob)
			jobRoute.GET("", jobCtl.ListJobs)
			jobRoute.POST("/generate", jobCtl.GenerateJob)
			jobRoute.GET("/:id", jobCtl.GetJob)
			jobRoute.PATCH("/:id", jobCtl.UpdateJob)
			jobRoute.DELETE("/:id", jobCtl.DeleteJob)
		}

		candidateRoute := v1.Group("/candidates")
		{
			candidateRoute.POST("", candidateCtl.CreateCandidate)
			candidateRoute.GET("", candidateCtl.ListCandidates)
			candidateRoute.POST("/from-email/:emailId", candidateCtl.FromEmail)
			candidateRoute.GET("/:id", candidateCtl.GetCandidate)
			candidateRoute.PATCH("/:id/notes", candidateCtl.UpdateNotes)
			candidateRoute.POST("/:id/resume", middleware.SizeLimit(10<<20), candidateCtl.UploadResume)
		}

		inboxRoute := v1.Group("/inbox")
		{
			inboxRoute.POST("/connect", inboxCtl.Connect)
			inboxRoute.POST("/sync", inboxCtl.Sync)
			inboxRoute.GET("/emails", inboxCtl.ListEmails)
			inboxRoute.GET("/emails/:id", inboxCtl.GetEmail)
			inboxRoute.POST("/emails/:id/classify", inboxCtl.ClassifyEmail)
			inboxRoute.POST("/emails/:id/workflow", inboxCtl.RunWorkflow)
			inboxRoute.POST("/classify-all", inboxCtl.ClassifyAll)
			inboxRoute.POST("/workflow/run", inboxCtl.RunAllWorkflows)
		}

		applicationRoute := v1.Group("/applications")
		{
			applicationRoute.POST("/match", applicationCtl.Match)
			applicationRoute.GET("", applicationCtl.ListApplications)
			applicationRoute.GET("/export", applicationCtl.ExportCSV)
			applicationRoute.POST("/bulk-stage", applicationCtl.BulkChangeStage)
			applicationRoute.GET("/:id", applicationCtl.GetApplication)
			applicationRoute.PATCH("/:id/stage", applicationCtl.ChangeStage)
			applicationRoute.PATCH("/:id/notes", applicationCtl.UpdateNotes)
			applicationRoute.POST("/:id/retry-score", applicationCtl.RetryScore)
			applicationRoute.POST("/:id/finalize", applicationCtl.Finalize)
			applicationRoute.POST("/:id/interview-link", screeningCtl.GenerateLink)
			applicationRoute.POST("/:id/interview-link/regenerate", screeningCtl.RegenerateLink)
			applicationRoute.GET("/:id/interview-links", screeningCtl.ListLinks)
			applicationRoute.POST("/:id/evaluate", screeningCtl.EvaluateNow)
			applicationRoute.POST("/:id/transcript", screeningCtl.SubmitManualTranscript)
		}

		v1.POST("/interview-links/:linkId/send", screeningCtl.SendLink)

		reportRoute := v1.Group("/reports")
		{
			reportRoute.GET("/funnel", reportCtl.Funnel)
			reportRoute.GET("/top-candidates", reportCtl.TopCandidates)
			reportRoute.GET("/summary", reportCtl.GetSummary)
			reportRoute.GET("/activity", reportCtl.Activity)
		}

		settingsRoute := v1.Group("/settings")
		{
			settingsRoute.GET("/agents", settingsCtl.GetAgents)
			settingsRoute.GET("/config", settingsCtl.GetConfig)
			settingsRoute.GET("/usage", settingsCtl.GetUsage)
		}

		// Candidate-facing endpoints: unauthenticated, token in the path,
		// rate limited per client IP.
		interviewRoute := v1.Group("/interview")
		{
			interviewRoute.Use(middleware.EnvRateLimitMiddleware())
			interviewRoute.GET("/:token/validate", screeningCtl.ValidateLink)
			interviewRoute.POST("/:token/status", screeningCtl.UpdateStatus)
			interviewRoute.POST("/:token/face-telemetry", screeningCtl.RecordFaceTelemetry)
			interviewRoute.POST("/:token/transcript", screeningCtl.SubmitTranscript)
		}

		// Signature-verified, so no rate limit group.
		v1.POST("/webhooks/interview", screeningCtl.Webhook)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func (s *MyServer) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.DB.Health())
}
