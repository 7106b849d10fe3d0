// Package api is a thin Gin adapter exposing the core's operations over
// HTTP. Per spec.md §6, HTTP is an adapter around the core, not the core
// itself — handlers here do nothing but parse input, call into pkg/query,
// pkg/store and pkg/queue, and render JSON.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/query"
	"github.com/brentyJ/recog/pkg/queue"
	"github.com/brentyJ/recog/pkg/store"
	"github.com/gin-gonic/gin"
)

// Server wires the store, query service, and worker pool into a Gin router.
type Server struct {
	store   store.Store
	queries *query.Service
	pool    *queue.Pool
	router  *gin.Engine
}

// New builds a Server. mode is the Gin mode ("debug"/"release"/"test").
func New(s store.Store, q *query.Service, pool *queue.Pool, mode string) *Server {
	gin.SetMode(mode)
	r := gin.Default()

	srv := &Server{store: s, queries: q, pool: pool, router: r}
	srv.routes()
	return srv
}

// Run starts the HTTP server on addr (e.g. ":8080"), blocking until it exits.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) routes() {
	s.router.GET("/health", s.handleHealth)

	cases := s.router.Group("/cases")
	cases.POST("", s.handleCreateCase)
	cases.GET("/:id", s.handleGetCase)
	cases.GET("/:id/timeline", s.handleTimeline)
	cases.GET("/:id/insights", s.handleInsights)
	cases.GET("/:id/patterns", s.handlePatterns)
	cases.GET("/:id/syntheses", s.handleSyntheses)
	cases.POST("/:id/documents", s.handleIngestDocument)
	cases.POST("/:id/cancel", s.handleCancelCase)

	s.router.GET("/entities", s.handleEntities)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	cost, err := s.store.CostTotal(ctx, nil)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}

	var workers []queue.WorkerHealth
	if s.pool != nil {
		workers = s.pool.Health()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"total_cost_cents": cost,
		"workers":         workers,
	})
}

type createCaseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (s *Server) handleCreateCase(c *gin.Context) {
	var req createCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	newCase := &models.Case{
		ID:          models.NewID(),
		Title:       req.Title,
		Description: req.Description,
		State:       models.CaseUploading,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SaveCase(c.Request.Context(), newCase); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, newCase)
}

func (s *Server) handleGetCase(c *gin.Context) {
	overview, err := s.queries.CaseOverview(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (s *Server) handleTimeline(c *gin.Context) {
	events, err := s.store.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (s *Server) handleInsights(c *gin.Context) {
	insights, err := s.queries.FindInsights(c.Request.Context(), query.InsightFilter{
		CaseID: c.Param("id"),
		RunID:  c.Query("run_id"),
		Theme:  c.Query("theme"),
	})
	if err != nil {
		s.respondStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, insights)
}

func (s *Server) handlePatterns(c *gin.Context) {
	patterns, err := s.queries.FindPatterns(c.Request.Context(), query.PatternFilter{
		CaseID: c.Param("id"),
		RunID:  c.Query("run_id"),
	})
	if err != nil {
		s.respondStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, patterns)
}

func (s *Server) handleSyntheses(c *gin.Context) {
	syntheses, err := s.queries.FindSyntheses(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, syntheses)
}

type ingestDocumentRequest struct {
	SourceType string         `json:"source_type" binding:"required"`
	SourceRef  string         `json:"source_ref"`
	Text       string         `json:"text" binding:"required"`
	Metadata   map[string]any `json:"metadata"`
}

func (s *Server) handleIngestDocument(c *gin.Context) {
	caseID := c.Param("id")
	var req ingestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc := models.NewDocumentFromParsed(caseID, req.SourceType, req.SourceRef, models.ParsedContent{
		Text:     req.Text,
		Metadata: req.Metadata,
	})
	if err := s.store.SaveDocument(c.Request.Context(), doc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	item := &models.QueueItem{
		ID:     models.NewID(),
		CaseID: &caseID,
		Kind:   models.QueueExtract,
		Payload: map[string]any{
			"document_id": doc.ID,
		},
		Status: models.QueueStatusQueued,
	}
	if err := s.store.Enqueue(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.advanceToScanning(c.Request.Context(), caseID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"document_id": doc.ID, "queue_item_id": item.ID})
}

// advanceToScanning moves a case into scanning on document ingestion: a
// fresh case leaves uploading, and a previously-completed case re-opens
// from watching (spec.md §4.9). A case already mid-pipeline is left alone.
func (s *Server) advanceToScanning(ctx context.Context, caseID string) error {
	current, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	switch current.State {
	case models.CaseUploading, models.CaseWatching:
		err := s.store.AdvanceCase(ctx, caseID, current.State, models.CaseScanning, "document ingested")
		if err != nil && !errors.Is(err, store.ErrStaleTransition) {
			return err
		}
		return nil
	default:
		return nil
	}
}

func (s *Server) handleCancelCase(c *gin.Context) {
	if s.pool == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "worker pool not running on this instance"})
		return
	}
	cancelled := s.pool.CancelCase(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

func (s *Server) handleEntities(c *gin.Context) {
	entities, err := s.queries.FindEntities(c.Request.Context(), query.EntityFilter{Type: models.EntityType(c.Query("type"))})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entities)
}

func (s *Server) respondStoreErr(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
