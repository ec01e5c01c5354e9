// Package server exposes the archived daily events and the ingestion
// audit trail over a small read-only HTTP API, backing the dashboard
// mockup.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/models"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultListLimit = 30

// Server wires the repositories to the HTTP routes.
type Server struct {
	events repository.ProcessedEventRepository
	logs   repository.IngestionLogRepository
	logger *zap.Logger
}

// NewServer creates a new dashboard server.
func NewServer(events repository.ProcessedEventRepository, logs repository.IngestionLogRepository, logger *zap.Logger) *Server {
	return &Server{events: events, logs: logs, logger: logger}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/events/latest", s.getLatestEvent)
		api.GET("/events", s.getRecentEvents)
		api.GET("/logs", s.getRecentLogs)
	}

	return router
}

// eventView unpacks the archived JSONB columns for API consumers.
type eventView struct {
	ID          int64               `json:"id"`
	EventDate   string              `json:"event_date"`
	Year        int                 `json:"year"`
	Titles      models.Translations `json:"titles"`
	Narrative   models.Translations `json:"narrative"`
	ImageURL    *string             `json:"image_url"`
	ImpactScore *float64            `json:"impact_score"`
	SourceURL   *string             `json:"source_url"`
}

func toView(ev *models.ProcessedEvent) eventView {
	view := eventView{
		ID:          ev.ID,
		EventDate:   ev.EventDate.Format("2006-01-02"),
		Year:        ev.Year,
		ImageURL:    ev.ImageURL,
		ImpactScore: ev.ImpactScore,
		SourceURL:   ev.SourceURL,
	}
	// Archived rows are written by us; a decode failure just leaves the
	// translations empty in the view.
	_ = json.Unmarshal(ev.Titles, &view.Titles)
	_ = json.Unmarshal(ev.Narrative, &view.Narrative)
	return view
}

func (s *Server) getLatestEvent(c *gin.Context) {
	ev, err := s.events.GetLatest(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to load latest event", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "no archived events"})
		return
	}
	c.JSON(http.StatusOK, toView(ev))
}

func (s *Server) getRecentEvents(c *gin.Context) {
	events, err := s.events.GetRecent(c.Request.Context(), limitParam(c))
	if err != nil {
		s.logger.Error("Failed to load events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}

	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		views = append(views, toView(ev))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getRecentLogs(c *gin.Context) {
	entries, err := s.logs.GetRecent(c.Request.Context(), limitParam(c))
	if err != nil {
		s.logger.Error("Failed to load audit log", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load audit log"})
		return
	}

	type logView struct {
		ID            int64    `json:"id"`
		EventDate     string   `json:"event_date"`
		MainEventYear *int     `json:"main_event_year"`
		Status        string   `json:"status"`
		ImpactScore   *float64 `json:"impact_score"`
		ErrorMessage  *string  `json:"error_message"`
	}
	views := make([]logView, 0, len(entries))
	for _, e := range entries {
		views = append(views, logView{
			ID:            e.ID,
			EventDate:     e.EventDate.Format("2006-01-02 15:04:05"),
			MainEventYear: e.MainEventYear,
			Status:        e.Status,
			ImpactScore:   e.ImpactScore,
			ErrorMessage:  e.ErrorMessage,
		})
	}
	c.JSON(http.StatusOK, views)
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.Info("Dashboard server running", zap.String("port", port))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down dashboard server...")
		return srv.Shutdown(context.Background())
	}
}
