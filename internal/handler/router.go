package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lingopad/api/internal/logger"
	"github.com/lingopad/api/internal/middleware"
	"github.com/lingopad/api/internal/ratelimit"
	"github.com/lingopad/api/internal/response"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const TypingPracticePrefix = "/api/v1/english/typing-practice"

type RouterConfig struct {
	JWTSecret      string
	CORSOrigins    []string
	RequestTimeout time.Duration
	Limiter        *ratelimit.Limiter
	Log            *logger.Logger
}

// NewRouter wires middleware and routes.
func NewRouter(cfg RouterConfig, typing *TypingHandler) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		response.Abort(c, http.StatusInternalServerError, "internal server error")
	}))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.MetricsMiddleware())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group(TypingPracticePrefix)
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		api.GET("/words/", typing.Words)
		api.GET("/calendar/", typing.Calendar)
		api.GET("/sessions/", typing.ListSessions)
		api.GET("/sessions/:date/", typing.GetSession)
		api.POST("/sessions/",
			middleware.RateLimit(cfg.Limiter, ratelimit.ActionRecordPractice, log),
			typing.RecordSession,
		)
		api.GET("/dictionaries/", typing.Dictionaries)
		api.GET("/dictionaries/:id/chapters/", typing.Chapters)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Abort(c, http.StatusNotFound, "not found")
	})

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
