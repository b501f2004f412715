// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/cartguard/cartguard/internal/artifacts"
	"github.com/cartguard/cartguard/internal/config"
	"github.com/cartguard/cartguard/internal/features"
	"github.com/cartguard/cartguard/internal/forecast"
	"github.com/cartguard/cartguard/internal/health"
	"github.com/cartguard/cartguard/internal/idgen"
	"github.com/cartguard/cartguard/internal/journey"
	"github.com/cartguard/cartguard/internal/logging"
	"github.com/cartguard/cartguard/internal/metrics"
	"github.com/cartguard/cartguard/internal/nav"
	"github.com/cartguard/cartguard/internal/offers"
	"github.com/cartguard/cartguard/internal/ratelimit"
	"github.com/cartguard/cartguard/internal/realtime"
	"github.com/cartguard/cartguard/internal/scan"
	"github.com/cartguard/cartguard/internal/security"
	"github.com/cartguard/cartguard/internal/traces"
	"github.com/cartguard/cartguard/internal/validation"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg         *config.Config
	artifacts   *artifacts.Artifacts
	scorer      *scan.Scorer
	scanStore   scan.Store
	forecaster  *forecast.Adapter
	sessionMgr  *nav.Manager
	offerIssuer *offers.Issuer
	realtimeHub *realtime.Hub
	healthReg   *health.Registry
	rateLimiter *ratelimit.Limiter
	db          *sql.DB // nil if using in-memory
	router      *gin.Engine
	httpSrv     *http.Server
	logger      *slog.Logger
	cancelRun   context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithArtifacts injects pre-loaded model artifacts (for testing)
func WithArtifacts(a *artifacts.Artifacts) Option {
	return func(s *Server) {
		s.artifacts = a
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may set artifacts/logger)
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Load model artifacts once, before any inference is possible.
	if s.artifacts == nil {
		s.artifacts = artifacts.NewProvider(cfg.ModelDir, s.logger).Load()
	}

	// Schema mismatch between the loaded classifier and the vector builder
	// is a configuration error: halt here rather than score garbage.
	if c := s.artifacts.Classifier; c != nil && c.FeatureWidth != features.VectorWidth {
		return nil, fmt.Errorf("%w: classifier expects %d, builder produces %d",
			artifacts.ErrSchemaMismatch, c.FeatureWidth, features.VectorWidth)
	}

	// Scan audit storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		pgStore := scan.NewPostgresStore(db)
		if err := pgStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate scan store", "error", err)
		}
		s.scanStore = pgStore
		s.logger.Info("using PostgreSQL scan storage", "url", maskDSN(cfg.DatabaseURL))
	} else {
		s.scanStore = scan.NewMemoryStore()
		s.logger.Info("using in-memory scan storage (data will not persist)")
	}

	// Scoring pipeline
	s.scorer = scan.NewScorer(s.artifacts, s.scanStore).
		WithFallbackRiskPct(cfg.FallbackRiskPct)
	s.forecaster = forecast.NewAdapter(s.artifacts)

	// Recovery offers (Stripe-backed codes when configured)
	var minter offers.Minter
	if cfg.StripeAPIKey != "" {
		minter = offers.NewStripeMinter(cfg.StripeAPIKey, s.logger)
		s.logger.Info("stripe offer codes enabled")
	}
	s.offerIssuer = offers.NewIssuer(minter)

	// Navigation gate
	verifier := nav.StaticVerifier(cfg.AdminID, cfg.AdminAccessKey)
	s.sessionMgr = nav.NewManager(verifier, cfg.SessionTTL)
	s.logger.Info("dashboard gate enabled", "session_ttl", cfg.SessionTTL)

	// Realtime scan stream
	s.realtimeHub = realtime.NewHub(s.logger)

	// Health checks
	s.healthReg = health.NewRegistry()
	s.registerHealthChecks()

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

func (s *Server) registerHealthChecks() {
	s.healthReg.Register("classifier", func(ctx context.Context) health.Status {
		if s.artifacts.Classifier == nil {
			// Absent model is degraded-but-functional: scans fall back
			return health.Status{Name: "classifier", Healthy: true, Detail: "absent, fallback tier active"}
		}
		return health.Status{Name: "classifier", Healthy: true, Detail: "loaded"}
	})
	s.healthReg.Register("forecaster", func(ctx context.Context) health.Status {
		if s.artifacts.Forecaster == nil {
			return health.Status{Name: "forecaster", Healthy: true, Detail: "absent, forecasts unavailable"}
		}
		return health.Status{Name: "forecaster", Healthy: true, Detail: "loaded"}
	})
	if s.db != nil {
		s.healthReg.Register("database", func(ctx context.Context) health.Status {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := s.db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	}
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	rlCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// API info
	s.router.GET("/api", s.infoHandler)

	// V1 API group
	v1 := s.router.Group("/v1")
	v1.Use(nav.Middleware(s.sessionMgr))

	// Session navigation (public: the gate itself must be reachable)
	navHandler := nav.NewHandler(s.sessionMgr)
	navHandler.RegisterRoutes(v1)

	// Everything behind the dashboard gate
	dashboard := v1.Group("")
	dashboard.Use(nav.RequireDashboard())
	{
		scanHandler := scan.NewHandler(s.scorer, s.scanStore).
			WithOffers(s.offerIssuer).
			WithEvents(&scanEventEmitter{s.realtimeHub})
		scanHandler.RegisterRoutes(dashboard)

		forecastHandler := forecast.NewHandler(s.forecaster, s.cfg.ForecastHorizonDays)
		forecastHandler.RegisterRoutes(dashboard)

		journeyHandler := journey.NewHandler(s.scanStore)
		journeyHandler.RegisterRoutes(dashboard)

		// WebSocket scan stream
		dashboard.GET("/ws", func(c *gin.Context) {
			s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
		})
	}
}

// scanEventEmitter adapts the realtime hub to the scan.EventEmitter seam.
type scanEventEmitter struct {
	hub *realtime.Hub
}

func (e *scanEventEmitter) ScanCompleted(rec *scan.Record, offerCode string) {
	data := map[string]any{
		"scanId":      rec.Assessment.ID,
		"riskPct":     float64(rec.Assessment.RiskPct),
		"isBot":       rec.Assessment.IsBot,
		"source":      string(rec.Assessment.Source),
		"funnelStage": string(rec.Features.FunnelStage),
		"action":      string(rec.Decision.Action),
		"hesitation":  string(rec.Decision.Hesitation),
	}
	if offerCode != "" {
		data["offerCode"] = offerCode
	}

	e.hub.BroadcastScan(data)

	if rec.Assessment.IsBot {
		e.hub.Broadcast(&realtime.Event{
			Type:      realtime.EventBotDetected,
			Timestamp: time.Now(),
			Data:      data,
		})
	}
	if rec.Decision.Hesitation == scan.HesitationCritical && !rec.Assessment.IsBot {
		e.hub.Broadcast(&realtime.Event{
			Type:      realtime.EventCriticalRisk,
			Timestamp: time.Now(),
			Data:      data,
		})
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "CartGuard",
		"description": "Real-time checkout-abandonment risk assessment",
		"version":     "0.1.0",
		"classifier":  s.artifacts.Classifier != nil,
		"forecaster":  s.artifacts.Forecaster != nil,
		"realtime":    s.realtimeHub.Stats(),
	})
}

func generateRequestID() string {
	return idgen.Hex(16)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	// Cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRun = cancel

	// Tracing
	shutdownTraces, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
		shutdownTraces = func(context.Context) error { return nil }
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Expired session sweeper
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if n := s.sessionMgr.Sweep(); n > 0 {
					s.logger.Debug("swept expired sessions", "count", n)
				}
			}
		}
	}()

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	shutdownErr := s.Shutdown()
	if err := shutdownTraces(context.Background()); err != nil {
		s.logger.Warn("trace shutdown error", "error", err)
	}
	return shutdownErr
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for background goroutines (hub, sweeper)
	if s.cancelRun != nil {
		s.cancelRun()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}
