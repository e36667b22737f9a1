package handlers

import (
	"time"

	"remindmail/internal/auth"
	"remindmail/internal/metrics"
	"remindmail/internal/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig carries the settings the routes depend on
type RouterConfig struct {
	CronSecret     string
	AllowedOrigins []string
	SubmitLimiter  ratelimit.Limiter
	SubmitLimit    int
	SubmitWindow   time.Duration
}

// SetupRouter registers every route on a new engine
func SetupRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.SetTrustedProxies([]string{"127.0.0.1"})
	router.Use(metrics.Middleware())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	router.GET("/", HomeHandler)
	router.GET("/health", h.HealthHandler)
	router.GET("/metrics", metrics.Handler())

	router.POST("/reminders",
		ratelimit.Middleware(cfg.SubmitLimiter, cfg.SubmitLimit, cfg.SubmitWindow),
		h.CreateReminder)

	// Routes for the scheduler and operators (shared secret when configured)
	protected := router.Group("")
	protected.Use(auth.CronAuthMiddleware(cfg.CronSecret))
	{
		protected.GET("/cron/run", h.RunCron)
		protected.POST("/cron/run", h.RunCron)
		protected.GET("/cron/runs", h.ListSweepRuns)
		protected.GET("/reminders", h.ListReminders)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
