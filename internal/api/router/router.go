// Package router wires the gin engine: middleware, health and metrics
// endpoints, and the catalog API routes.
package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/catalog-imaging/internal/api/handler"
	"github.com/cuongbtq/catalog-imaging/internal/metrics"
	"github.com/cuongbtq/catalog-imaging/internal/ratelimit"
	"github.com/cuongbtq/catalog-imaging/shared/postgresql"
	"github.com/cuongbtq/catalog-imaging/shared/rabbitmq"
)

// Dependencies holds everything the router needs.
type Dependencies struct {
	Handler      *handler.Handler
	Logger       *slog.Logger
	DBClient     *postgresql.Client
	RabbitClient *rabbitmq.Client
	Limiter      *ratelimit.Limiter
}

// SetupRouter configures and returns the gin engine.
func SetupRouter(deps *Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	r.Use(MetricsMiddleware())
	if deps.Limiter != nil {
		r.Use(deps.Limiter.Middleware())
	}

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		checks := gin.H{"database": "ok", "broker": "ok"}

		if err := deps.DBClient.Ping(c.Request.Context()); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if !deps.RabbitClient.IsConnected() {
			checks["broker"] = "disconnected"
			status = http.StatusServiceUnavailable
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":  state,
			"service": "catalog-api-service",
			"checks":  checks,
		})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	h := deps.Handler

	r.POST("/upload", h.Upload)
	r.GET("/status/:task_id", h.Status)

	api := r.Group("/api")
	{
		products := api.Group("/products")
		{
			products.GET("", h.ListProducts)
			products.POST("", h.CreateProduct)
			// Static before the :id param; gin routes the literal
			// segment first.
			products.GET("/images", h.ListImages)
			products.GET("/:id", h.GetProduct)
			products.PUT("/:id", h.UpdateProduct)
			products.DELETE("/:id", h.DeleteProduct)
			products.GET("/:id/images", h.ListProductImages)
		}
	}

	return r
}
