package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentcal/internal/infra/config"
	"rentcal/internal/infra/obs"
)

type CalendarHTTP interface {
	Open(c *gin.Context)
	View(c *gin.Context)
	Snapshot(c *gin.Context)
	Navigate(c *gin.Context)
	Click(c *gin.Context)
	Hover(c *gin.Context)
	Leave(c *gin.Context)
	Apply(c *gin.Context)
	Cancel(c *gin.Context)
	Blocking(c *gin.Context)
	BlockDays(c *gin.Context)
	Unblock(c *gin.Context)
	Price(c *gin.Context)
	DefaultCost(c *gin.Context)
	WeekendDiscount(c *gin.Context)
	Commit(c *gin.Context)
	Clear(c *gin.Context)
	Close(c *gin.Context)
}

type Handlers struct {
	Calendar CalendarHTTP
	Metrics  http.Handler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"Location",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := router.Group("/api/v1")
	if h.Calendar != nil {
		cal := api.Group("/calendars")
		cal.POST("", h.Calendar.Open)
		cal.GET("/:id", h.Calendar.View)
		cal.DELETE("/:id", h.Calendar.Close)
		cal.GET("/:id/snapshot", h.Calendar.Snapshot)
		cal.POST("/:id/navigate", h.Calendar.Navigate)
		cal.POST("/:id/days/:date/click", h.Calendar.Click)
		cal.POST("/:id/days/:date/hover", h.Calendar.Hover)
		cal.DELETE("/:id/hover", h.Calendar.Leave)
		cal.POST("/:id/days/:date/unblock", h.Calendar.Unblock)
		cal.PUT("/:id/days/:date/price", h.Calendar.Price)
		cal.POST("/:id/blocks", h.Calendar.BlockDays)
		cal.POST("/:id/selection/apply", h.Calendar.Apply)
		cal.POST("/:id/selection/cancel", h.Calendar.Cancel)
		cal.PUT("/:id/selection/blocking", h.Calendar.Blocking)
		cal.PUT("/:id/settings/default-cost", h.Calendar.DefaultCost)
		cal.PUT("/:id/settings/weekend-discount", h.Calendar.WeekendDiscount)
		cal.POST("/:id/commit", h.Calendar.Commit)
		cal.POST("/:id/clear", h.Calendar.Clear)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
