package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/lingopad/api/internal/analytics"
	"github.com/lingopad/api/internal/cache"
	"github.com/lingopad/api/internal/catalog"
	"github.com/lingopad/api/internal/clock"
	"github.com/lingopad/api/internal/config"
	"github.com/lingopad/api/internal/database"
	"github.com/lingopad/api/internal/handler"
	"github.com/lingopad/api/internal/logger"
	"github.com/lingopad/api/internal/practice"
	"github.com/lingopad/api/internal/ratelimit"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional: without it word lists are always read from the
	// database and rate limiting is disabled.
	var (
		wordCache catalog.WordCache
		limiter   *ratelimit.Limiter
	)
	redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable, continuing without cache", "error", err)
	} else {
		defer redisCache.Close()
		wordCache = redisCache
		limiter = ratelimit.NewLimiter(redisCache, map[string]ratelimit.ActionConfig{
			ratelimit.ActionRecordPractice: {Limit: cfg.RateLimitPerMinute, Window: time.Minute},
		})
	}

	clk := clock.System{}
	typing := handler.NewTypingHandler(
		catalog.NewService(db, wordCache, log.With("component", "catalog")),
		practice.NewStore(db, clk, practice.WithRetries(cfg.UpsertRetries), practice.WithLogger(log.With("component", "practice"))),
		analytics.NewCalendar(db, clk, cfg.WeekStart, cfg.IntensityThresholds),
		log,
	)

	r := handler.NewRouter(handler.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
		Log:            log,
	}, typing)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api server starting", "port", cfg.Port, "week_start", cfg.WeekStart.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down api server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
