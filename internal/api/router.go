package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/vidbatch/internal/api/handler"
	"github.com/timmy/vidbatch/internal/api/middleware"
	"github.com/timmy/vidbatch/internal/batchstore"
	"github.com/timmy/vidbatch/internal/logger"
	"github.com/timmy/vidbatch/internal/repository"
)

// SetupRouter configures the Gin router with all routes. reportRepo may
// be nil when the report ledger is disabled; the report routes are
// omitted then.
func SetupRouter(
	store *batchstore.Store,
	reportRepo *repository.ReportRepository,
	log *logger.Logger,
	mode string,
) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{AllowAllOrigins: true}))

	healthHandler := handler.NewHealthHandler()
	batchHandler := handler.NewBatchHandler(store)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/batches/latest", batchHandler.GetLatest)
		v1.GET("/batches/:id", batchHandler.GetBatch)

		if reportRepo != nil {
			reportHandler := handler.NewReportHandler(reportRepo)
			v1.GET("/reports", reportHandler.ListReports)
			v1.GET("/reports/:batch_id", reportHandler.GetBatchReports)
		}
	}

	return r
}
