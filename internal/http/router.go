package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/potalora/ai-web-records-app-take-2/internal/http/handlers"
	httpMW "github.com/potalora/ai-web-records-app-take-2/internal/http/middleware"
	"github.com/potalora/ai-web-records-app-take-2/internal/observability"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	ServiceName string

	AuthMiddleware *httpMW.AuthMiddleware
	UploadHandler  *httpH.UploadHandler
	RecordHandler  *httpH.RecordHandler
	EventsHandler  *httpH.EventsHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "health-records"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	if cfg.UploadHandler != nil {
		api.POST("/uploads", cfg.UploadHandler.Upload)
		api.GET("/uploads", cfg.UploadHandler.ListUploads)
		api.GET("/uploads/:id/status", cfg.UploadHandler.Status)
		api.GET("/uploads/:id/errors", cfg.UploadHandler.Errors)
	}
	if cfg.RecordHandler != nil {
		api.GET("/records", cfg.RecordHandler.ListRecords)
		api.GET("/records/:id", cfg.RecordHandler.GetRecord)
	}
	if cfg.EventsHandler != nil {
		api.GET("/events", cfg.EventsHandler.Stream)
	}

	return r
}
