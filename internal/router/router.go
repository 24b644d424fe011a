package router

import (
	"github.com/gin-gonic/gin"

	"sheetlens/internal/handler"
	"sheetlens/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	analysisH *handler.AnalysisHandler,
	healthH *handler.HealthHandler,
	corsOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Workbook routes
	workbooks := v1.Group("/workbooks")
	workbooks.POST("/analyze", analysisH.Analyze)
	workbooks.POST("/inspect", analysisH.Inspect)

	// API key verification
	v1.POST("/key/verify", analysisH.VerifyKey)

	return r
}
