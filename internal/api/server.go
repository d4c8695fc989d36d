// Package api exposes the diagnosis engine, patient registry and history
// manager over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sympdx-server/internal/catalog"
	"github.com/sympdx-server/internal/domain"
	"github.com/sympdx-server/internal/history"
	"github.com/sympdx-server/internal/patients"
	"github.com/sympdx-server/internal/service"
	"github.com/sympdx-server/pkg/terminology"
)

// Services bundles everything the HTTP layer dispatches into.
type Services struct {
	Patients    *patients.Manager
	Engine      *service.CachedEngine
	History     *service.HistoryManager
	HistoryData history.Store
	Catalog     *catalog.Store
	Stats       *service.StatsService
	Terminology *terminology.Client // optional, may be nil
}

// Server is the HTTP server.
type Server struct {
	cfg      domain.ServerConfig
	services Services
	router   *gin.Engine
	server   *http.Server
	log      *logrus.Logger
}

// NewServer creates an HTTP server around the given services.
func NewServer(cfg domain.ServerConfig, services Services, logLevel string, logger *logrus.Logger) *Server {
	if logLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	s := &Server{
		cfg:      cfg,
		services: services,
		router:   router,
		log:      logger,
	}
	s.setupRoutes()
	return s
}

// Router exposes the underlying handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/patients", s.handleRegisterPatient)
		v1.GET("/patients", s.handleSearchPatients)
		v1.GET("/patients/:id", s.handleGetPatient)
		v1.PATCH("/patients/:id", s.handleUpdatePatient)
		v1.DELETE("/patients/:id", s.handleDeactivatePatient)
		v1.GET("/patients/:id/chart", s.handlePatientChart)

		v1.POST("/diagnose", s.handleDiagnose)

		v1.GET("/patients/:id/history", s.handleHistory)
		v1.DELETE("/patients/:id/history", s.handleClearHistory)
		v1.GET("/patients/:id/history/export", s.handleExportHistory)
		v1.GET("/patients/:id/history/report", s.handleHistoryReport)
		v1.GET("/patients/:id/history/:recordID/report", s.handleDiagnosisReport)
		v1.POST("/history/import", s.handleImportHistory)

		v1.GET("/symptoms", s.handleListSymptoms)
		v1.GET("/diseases", s.handleListDiseases)
		v1.POST("/catalog/reload", s.handleReloadCatalog)

		v1.GET("/stats", s.handleStats)
		v1.GET("/terminology/search", s.handleTerminologySearch)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// corsMiddleware adds CORS headers to responses.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestIDMiddleware tags each request with a unique ID.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
