package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dsyorkd/emr-controller/internal/api/handlers"
	"github.com/dsyorkd/emr-controller/internal/api/middleware"
	"github.com/dsyorkd/emr-controller/internal/config"
	"github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/services"
	"github.com/dsyorkd/emr-controller/internal/storage"
	"github.com/dsyorkd/emr-controller/internal/websocket"
)

// Server represents the REST API server
type Server struct {
	config   *config.APIConfig
	logger   logger.Interface
	database *storage.Database
	clusters *services.ClusterService
	releases *services.ReleaseService
	hub      *websocket.Hub
	router   *gin.Engine
	server   *http.Server
}

// New creates a new API server instance
func New(
	cfg *config.APIConfig,
	log logger.Interface,
	db *storage.Database,
	clusters *services.ClusterService,
	releases *services.ReleaseService,
	hub *websocket.Hub,
	debug bool,
) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:   cfg,
		logger:   log,
		database: db,
		clusters: clusters,
		releases: releases,
		hub:      hub,
		router:   gin.New(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes and middleware
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID(s.logger))
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.AccessLog(s.logger))
	s.router.Use(middleware.NewRateLimiter(nil, s.logger).Middleware())

	healthHandler := handlers.NewHealthHandler(s.database)
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/ready", healthHandler.Ready)

	v1 := s.router.Group("/api/v1")
	{
		if s.config.AuthEnabled {
			v1.Use(middleware.Auth(s.config.AuthToken))
		}

		clusterHandler := handlers.NewClusterHandler(s.clusters, s.logger)
		clusters := v1.Group("/clusters")
		{
			clusters.GET("", clusterHandler.List)
			clusters.POST("", clusterHandler.Create)
			clusters.GET("/:id", clusterHandler.Get)
			clusters.POST("/:id/extend", clusterHandler.Extend)
			clusters.POST("/:id/terminate", clusterHandler.Terminate)
			clusters.POST("/:id/sync", clusterHandler.Sync)
		}

		releaseHandler := handlers.NewReleaseHandler(s.releases, s.logger)
		releases := v1.Group("/releases")
		{
			releases.GET("", releaseHandler.List)
			releases.GET("/:version", releaseHandler.Get)
		}

		system := v1.Group("/system")
		{
			system.GET("/info", handlers.SystemInfo)
			system.GET("/metrics", handlers.SystemMetrics)
		}

		if s.hub != nil {
			v1.GET("/events", gin.WrapH(s.hub))
		}
	}
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  config.Duration(s.config.ReadTimeout, 30*time.Second),
		WriteTimeout: config.Duration(s.config.WriteTimeout, 30*time.Second),
	}

	s.logger.WithField("addr", addr).Info("Starting API server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("Stopping API server")
	if s.hub != nil {
		s.hub.Close()
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}
