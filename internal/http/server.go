package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	authHTTP "github.com/allisson/vaultfs/internal/auth/http"
	filesHTTP "github.com/allisson/vaultfs/internal/files/http"
	foldersHTTP "github.com/allisson/vaultfs/internal/folders/http"
	"github.com/allisson/vaultfs/internal/metrics"
)

// RouterConfig bundles the handlers and middleware pieces the route table needs.
type RouterConfig struct {
	AuthHandler   *authHTTP.AuthHandler
	FileHandler   *filesHTTP.FileHandler
	FolderHandler *foldersHTTP.FolderHandler

	AuthMiddleware gin.HandlerFunc
	CSRFMiddleware gin.HandlerFunc

	// Per-class rate limit middlewares; nil entries disable the class.
	RateRegister       gin.HandlerFunc
	RateLogin          gin.HandlerFunc
	RatePasswordChange gin.HandlerFunc
	RateDownload       gin.HandlerFunc
	RateGeneral        gin.HandlerFunc

	MeterProvider    metric.MeterProvider
	MetricsNamespace string

	CORSEnabled      bool
	CORSAllowOrigins string
}

// Server represents the API HTTP server.
type Server struct {
	server *http.Server
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates the API server with the full route table wired.
// Middleware order per route: rate limiter (sensitive classes) → session
// resolver → CSRF check → handler. The general class runs after the CSRF
// check.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
	cfg RouterConfig,
) *Server {
	s := &Server{
		db:     db,
		logger: logger,
	}

	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(gin.Recovery())
	router.Use(CustomLoggerMiddleware(logger))

	if cfg.MeterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(cfg.MeterProvider, cfg.MetricsNamespace))
	}
	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	api := router.Group("/api")

	// Unauthenticated endpoints, IP rate limited.
	api.POST("/auth/register", optional(cfg.RateRegister), cfg.AuthHandler.RegisterHandler)
	api.POST("/auth/login", optional(cfg.RateLogin), cfg.AuthHandler.LoginHandler)

	// Everything below requires a session; mutating verbs also pass CSRF.
	authed := api.Group("", cfg.AuthMiddleware, cfg.CSRFMiddleware)

	authed.POST("/auth/logout", optional(cfg.RateGeneral), cfg.AuthHandler.LogoutHandler)
	api.POST("/auth/change-password", optional(cfg.RatePasswordChange), cfg.AuthMiddleware, cfg.CSRFMiddleware,
		cfg.AuthHandler.ChangePasswordHandler)

	authed.POST("/files/upload/init", optional(cfg.RateGeneral), cfg.FileHandler.InitUploadHandler)
	authed.POST("/files/upload/chunk", optional(cfg.RateGeneral), cfg.FileHandler.ChunkUploadHandler)
	authed.POST("/files/upload/finalize", optional(cfg.RateGeneral), cfg.FileHandler.FinalizeUploadHandler)
	authed.POST("/files/upload/cancel", optional(cfg.RateGeneral), cfg.FileHandler.CancelUploadHandler)
	authed.POST("/files/recalculate-quota", optional(cfg.RateGeneral), cfg.FileHandler.RecalculateQuotaHandler)
	authed.GET("/files", optional(cfg.RateGeneral), cfg.FileHandler.ListFilesHandler)
	authed.GET("/files/storage/info", optional(cfg.RateGeneral), cfg.FileHandler.StorageInfoHandler)
	api.GET("/files/:id", optional(cfg.RateDownload), cfg.AuthMiddleware, cfg.CSRFMiddleware,
		cfg.FileHandler.DownloadFileHandler)
	authed.DELETE("/files/:id", optional(cfg.RateGeneral), cfg.FileHandler.DeleteFileHandler)

	authed.GET("/folders", optional(cfg.RateGeneral), cfg.FolderHandler.ListRootHandler)
	authed.POST("/folders", optional(cfg.RateGeneral), cfg.FolderHandler.CreateFolderHandler)
	authed.GET("/folders/:id", optional(cfg.RateGeneral), cfg.FolderHandler.GetFolderHandler)
	authed.DELETE("/folders/:id", optional(cfg.RateGeneral), cfg.FolderHandler.DeleteFolderHandler)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Minute, // finalize and large downloads are slow paths
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// optional returns the middleware or a pass-through when it is nil.
func optional(mw gin.HandlerFunc) gin.HandlerFunc {
	if mw != nil {
		return mw
	}
	return func(c *gin.Context) {
		c.Next()
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports readiness, checking database connectivity.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{"database": "ok"}

	if s.db == nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
