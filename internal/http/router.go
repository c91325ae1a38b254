package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/conceptdb/internal/http/handlers"
	httpMW "github.com/yungbote/conceptdb/internal/http/middleware"
	"github.com/yungbote/conceptdb/internal/observability"
	"github.com/yungbote/conceptdb/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware
	RequestTimeout time.Duration

	HealthHandler    *httpH.HealthHandler
	ConceptHandler   *httpH.ConceptHandler
	AggregateHandler *httpH.AggregateHandler
	ImportHandler    *httpH.ImportHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, "/healthcheck", "/metrics"))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.Use(httpMW.RequestTimeout(cfg.RequestTimeout))
	{
		// Reads (public)
		if cfg.ConceptHandler != nil {
			api.GET("/concepts/lookup", cfg.ConceptHandler.Lookup)
		}
		if cfg.ImportHandler != nil {
			api.GET("/imports", cfg.ImportHandler.ListImports)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Concepts
		if cfg.ConceptHandler != nil {
			protected.POST("/concepts", cfg.ConceptHandler.ImportConcepts)
			protected.POST("/mappings", cfg.ConceptHandler.InsertMappings)
			protected.POST("/variants", cfg.ConceptHandler.AddVariants)
		}

		// Aggregates
		if cfg.AggregateHandler != nil {
			protected.POST("/aggregates/mapping", cfg.AggregateHandler.BuildByMapping)
			protected.POST("/aggregates/names", cfg.AggregateHandler.BuildByName)
			protected.POST("/aggregates/assemble", cfg.AggregateHandler.Assemble)
			protected.DELETE("/aggregates/:label", cfg.AggregateHandler.Delete)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "route not found", "code": "not_found"}})
	})
	return r
}
