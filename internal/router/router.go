package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/skillgate/assess-backend/internal/config"
	"github.com/skillgate/assess-backend/internal/handler"
	"github.com/skillgate/assess-backend/internal/middleware"
	"github.com/skillgate/assess-backend/internal/response"
	"github.com/skillgate/assess-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Assessment *handler.AssessmentHandler
	TestSet    *handler.TestSetHandler
	Monitor    *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for session creation (30 starts per minute per IP).
	startLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Candidate Group (JWT) ──────────────────────────────────────
	candidateAPI := router.Group("/api/v1/candidate")
	candidateAPI.Use(middleware.RequireCandidateJWT(authService))
	{
		candidateAPI.POST("/test-sets/:test_set_id/sessions",
			startLimiter.Middleware(),
			handlers.Assessment.StartSession,
		)
		candidateAPI.POST("/sessions/:submission_id/quizzes/:quiz_id/complete", handlers.Assessment.RecordQuizCompletion)
		candidateAPI.POST("/sessions/:submission_id/problems/:problem_id/complete", handlers.Assessment.RecordProblemCompletion)
		candidateAPI.GET("/sessions/:submission_id/state", handlers.Assessment.GetSessionState)
		candidateAPI.POST("/sessions/:submission_id/submit", handlers.Assessment.SubmitSession)
	}

	// ─── 2. Recruiter Group (JWT) ──────────────────────────────────────
	recruiterAPI := router.Group("/api/v1/recruiter")
	recruiterAPI.Use(middleware.RequireRecruiterJWT(authService))
	{
		recruiterAPI.GET("/test-sets", handlers.TestSet.ListTestSets)
		recruiterAPI.POST("/test-sets", handlers.TestSet.CreateTestSet)
		recruiterAPI.GET("/test-sets/:test_set_id", handlers.TestSet.GetTestSet)
		recruiterAPI.GET("/test-sets/:test_set_id/results", handlers.TestSet.ListResults)
	}

	// ─── 3. WebSocket Group (Recruiter WS Auth) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireRecruiterWSAuth(authService))
	{
		ws.GET("/recruiter/sessions/:submission_id/monitor", handlers.Monitor.MonitorSubmission)
	}

	return router
}
