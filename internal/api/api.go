// Package api exposes the pipeline control surface over HTTP: enqueue an
// analysis run, poll its status, fetch the result.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/talentgate/interview-pipeline/internal/pipeline"
	"github.com/talentgate/interview-pipeline/internal/store"
)

// Server wires the pipeline service into a gin router.
type Server struct {
	service *pipeline.Service
	logger  *zap.Logger
}

func NewServer(service *pipeline.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{service: service, logger: logger}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	interviews := router.Group("/api/v1/interviews")
	interviews.POST("/:id/analyze", s.enqueue)
	interviews.GET("/:id/analysis", s.status)
	interviews.GET("/:id/result", s.result)

	return router
}

func (s *Server) enqueue(c *gin.Context) {
	id, ok := interviewID(c)
	if !ok {
		return
	}

	entry, err := s.service.Enqueue(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"ledger_id":    entry.ID,
		"interview_id": entry.InterviewID,
		"status":       entry.Status,
		"queued_at":    entry.QueuedAt,
	})
}

func (s *Server) status(c *gin.Context) {
	id, ok := interviewID(c)
	if !ok {
		return
	}

	status, err := s.service.Status(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) result(c *gin.Context) {
	id, ok := interviewID(c)
	if !ok {
		return
	}

	result, err := s.service.Result(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func interviewID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interview id must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}

func (s *Server) renderError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	s.logger.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
