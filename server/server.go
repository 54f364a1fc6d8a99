package server

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/siherrmann/dealgraph/model"
)

// DefaultEntityLimit is used when /api/entities has no limit parameter
const DefaultEntityLimit = 20

// Service is the assistant behind the HTTP API
type Service interface {
	Ask(ctx context.Context, question string) (*model.Answer, error)
	Report(ctx context.Context, url string, topic string) (*model.Report, error)
	ArticleURLs() ([]string, error)
	SearchEntities(ctx context.Context, term string, entityType model.EntityType, limit int) ([]*model.Entity, error)
	Neighbors(ctx context.Context, entityID uuid.UUID, hops int) ([]*model.TraversalNode, error)
	CheckHealth(ctx context.Context) error
}

// Config configures the listener and CORS
type Config struct {
	Port           string
	AllowedOrigins []string
}

// Server provides the JSON API
type Server struct {
	service Service
	config  Config
	router  *gin.Engine
	server  *http.Server
	log     *slog.Logger
}

// AskRequest is the body of POST /api/ask
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// ReportRequest is the body of POST /api/report
type ReportRequest struct {
	URL   string `json:"url" binding:"required"`
	Topic string `json:"topic" binding:"required"`
}

// NewServer creates the server and registers all routes
func NewServer(service Service, config Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Port == "" {
		config.Port = "7861"
	}

	s := &Server{
		service: service,
		config:  config,
		log:     logger,
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests(), cors.New(corsConfig(config.AllowedOrigins)))

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	api.POST("/ask", s.handleAsk)
	api.POST("/report", s.handleReport)
	api.GET("/articles", s.handleArticles)
	api.GET("/entities", s.handleEntities)
	api.GET("/entities/:id/neighbors", s.handleNeighbors)

	s.router = router
	return s
}

// Handler returns the http handler of the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Stop is called
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("API server starting", slog.String("addr", s.server.Addr))
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return config
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("Handled request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.service.CheckHealth(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleAsk(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is empty"})
		return
	}

	answer, err := s.service.Ask(c.Request.Context(), req.Question)
	if err != nil {
		s.fail(c, "ask", err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (s *Server) handleReport(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.Topic) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url and topic are required"})
		return
	}

	report, err := s.service.Report(c.Request.Context(), req.URL, req.Topic)
	if err != nil {
		s.fail(c, "report", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleArticles(c *gin.Context) {
	urls, err := s.service.ArticleURLs()
	if err != nil {
		s.fail(c, "list articles", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": urls})
}

func (s *Server) handleEntities(c *gin.Context) {
	var entityType model.EntityType
	if raw := c.Query("type"); raw != "" {
		t, ok := model.ParseEntityType(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown entity type: " + raw})
			return
		}
		entityType = t
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultEntityLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive number"})
		return
	}

	entities, err := s.service.SearchEntities(c.Request.Context(), c.Query("q"), entityType, limit)
	if err != nil {
		s.fail(c, "search entities", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": entities})
}

func (s *Server) handleNeighbors(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity id"})
		return
	}

	// 0 lets the service use its configured hop limit
	hops := 0
	if raw := c.Query("hops"); raw != "" {
		hops, err = strconv.Atoi(raw)
		if err != nil || hops <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hops must be a positive number"})
			return
		}
	}

	nodes, err := s.service.Neighbors(c.Request.Context(), id, hops)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
		return
	}
	if err != nil {
		s.fail(c, "neighbors", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"neighbors": nodes})
}

func (s *Server) fail(c *gin.Context, operation string, err error) {
	s.log.Error("Request failed", slog.String("operation", operation), slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
