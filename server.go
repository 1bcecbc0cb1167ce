package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/juju/clock"
	"github.com/mmdatafocus/precast_backend/config"
	"github.com/mmdatafocus/precast_backend/middlewares"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/notify"
	"github.com/mmdatafocus/precast_backend/quality"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/repositories/gormstore"
	"github.com/mmdatafocus/precast_backend/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

const defaultPort = "8080"

var tracer = otel.Tracer("precast-qa")

// RateLimiter is a fixed-window limiter keyed by client IP.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// app is served once the database is connected; until then only /health and /metrics answer.
type app struct {
	engine atomic.Pointer[gin.Engine]
}

func (a *app) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.URL.Path {
	case "/health":
		w.WriteHeader(http.StatusNoContent)
		return
	case "/metrics":
		promhttp.Handler().ServeHTTP(w, req)
		return
	}
	engine := a.engine.Load()
	if engine == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	engine.ServeHTTP(w, req)
}

// components are the wired stores and background workers of one process.
type components struct {
	service    *quality.Service
	pieces     repositories.PieceRepository
	dispatcher *notify.OutboxDispatcher
	publisher  *notify.PubSubPublisher
}

func buildComponents(ctx context.Context, db *gorm.DB, logger *logrus.Logger) (*components, error) {
	notifications := gormstore.NewNotificationStore(db)
	pieces := gormstore.NewPieceStore(db)
	deps := quality.Dependencies{
		Inspections:   gormstore.NewInspectionStore(db),
		Defects:       gormstore.NewDefectStore(db),
		Measurements:  gormstore.NewMeasurementStore(db),
		Tests:         gormstore.NewTestResultStore(db),
		Templates:     gormstore.NewTemplateStore(db, logger),
		Pieces:        pieces,
		Jobs:          pieces,
		Notifications: notifications,
		IssuedNumbers: gormstore.NewIssuedNumberStore(db),
		Clock:         clock.WallClock,
		Logger:        logger,
		Tracer:        tracer,
	}
	if config.NumberingLockEnabled() {
		deps.Locker = utils.NewRedisScopeLocker(config.GetRedisLock(), 10*time.Second)
	}

	c := &components{pieces: pieces}
	transport := config.GetNotificationTransport()
	if transport == config.NotificationTransportPubSub || config.OutboxDispatchEnabled() {
		publisher, err := notify.NewPubSubPublisher(ctx)
		if err != nil {
			return nil, fmt.Errorf("pubsub publisher: %w", err)
		}
		c.publisher = publisher
	}
	if transport == config.NotificationTransportPubSub {
		deps.Sink = notify.NewPubSubSink(notifications, c.publisher, clock.WallClock, logger)
	}
	if config.OutboxDispatchEnabled() {
		c.dispatcher = notify.NewOutboxDispatcher(notifications, c.publisher, clock.WallClock, logger)
	}
	c.service = quality.NewService(deps)
	return c, nil
}

func newRouter(c *components, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.RequestContext())

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PATCH", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization",
		middlewares.HeaderUserId, middlewares.HeaderUserName, middlewares.HeaderCorrelationId)
	corsConfig.AddExposeHeaders("Content-Length", middlewares.HeaderCorrelationId)
	r.Use(cors.New(corsConfig))

	if config.IntFromEnv("RATE_LIMIT_MAX_REQUESTS", 0) > 0 && config.GetRedisDB() != nil {
		window := time.Duration(config.IntFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
		limiter := NewRateLimiter(config.GetRedisDB(), int64(config.IntFromEnv("RATE_LIMIT_MAX_REQUESTS", 0)), window)
		r.Use(limiter.RateLimitMiddleware)
	}

	r.Use(middlewares.LoaderMiddleware(c.pieces))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerQualityRoutes(r, &qualityHandlers{svc: c.service, dispatcher: c.dispatcher, logger: logger})
	r.NoRoute(customNotFoundHandler)
	return r
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	handler := &app{}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	comps, err := buildComponents(sigCtx, db, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "startup"}).Fatal(err.Error())
	}
	if comps.publisher != nil {
		defer comps.publisher.Stop()
	}

	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	if comps.dispatcher != nil {
		go comps.dispatcher.Run(dispatcherCtx)
	}

	handler.engine.Store(newRouter(comps, logger))
	logger.WithFields(logrus.Fields{
		"info":      "Connection Established",
		"transport": config.GetNotificationTransport(),
	}).Info("QA engine listening on :", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	cancelDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "ratelimit:" + c.ClientIP()

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		// limiter is best effort
		c.Next()
		return
	}
	if count == 1 {
		rl.client.Expire(c.Request.Context(), key, rl.window)
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
