// Package server exposes the question answering API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/ternarybob/arbor"

	"policyrag/internal/domain"
	"policyrag/internal/metrics"
	"policyrag/internal/service"
)

// Asker answers a single question.
type Asker interface {
	Ask(ctx context.Context, question string) (*service.Answer, error)
}

// Indexer rebuilds the index and reports its status.
type Indexer interface {
	Reindex(ctx context.Context) (int, error)
	Status() service.Status
}

type askRequest struct {
	Question string `json:"question"`
}

type source struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Path       string  `json:"path"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

type askResponse struct {
	Answer  string   `json:"answer"`
	Sources []source `json:"sources"`
}

type reindexResponse struct {
	Status            string `json:"status"`
	IndexedChunkCount int    `json:"indexed_chunk_count"`
}

type healthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
	Chunks int    `json:"chunks"`
}

// Server wires the HTTP routes to the query service and index manager.
type Server struct {
	echo    *echo.Echo
	asker   Asker
	indexer Indexer
	logger  arbor.ILogger
}

// New builds the echo instance with recovery, CORS and all routes.
func New(allowOrigins []string, asker Asker, indexer Indexer, logger arbor.ILogger, m *metrics.Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s := &Server{echo: e, asker: asker, indexer: indexer, logger: logger}

	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.handleError
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	e.GET("/healthz", s.health)
	e.GET("/health", s.health)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	api := e.Group("/api")
	api.POST("/ask", s.ask)
	api.POST("/reindex", s.reindex)
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, domain.ErrInvalidQuestion.Error())
	}
	ans, err := s.asker.Ask(c.Request().Context(), req.Question)
	if err != nil {
		return toHTTPError(err)
	}
	resp := askResponse{Answer: ans.Text, Sources: make([]source, 0, len(ans.Sources))}
	for _, r := range ans.Sources {
		resp.Sources = append(resp.Sources, source{
			DocumentID: r.Chunk.DocumentID,
			ChunkID:    r.Chunk.ChunkID,
			Path:       r.Chunk.Path,
			Score:      r.Score,
			Text:       r.Chunk.Text,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) reindex(c echo.Context) error {
	n, err := s.indexer.Reindex(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, reindexResponse{Status: "ok", IndexedChunkCount: n})
}

func (s *Server) health(c echo.Context) error {
	st := s.indexer.Status()
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", State: st.State.String(), Chunks: st.Chunks})
}

func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	ev := s.logger.Warn()
	if code >= http.StatusInternalServerError {
		ev = s.logger.Error()
	}
	ev.Int("status", code).Str("method", req.Method).Str("path", req.URL.Path).Str("remote", c.RealIP()).Err(err).Msg("Request failed")
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuestion):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotReady),
		errors.Is(err, domain.ErrEmptyCorpus),
		errors.Is(err, domain.ErrCorruptIndex):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrEmbedding), errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func toHTTPError(err error) error {
	return echo.NewHTTPError(statusFor(err), err.Error()).SetInternal(err)
}
