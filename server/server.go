// Package server exposes a ChatCore over HTTP: JSON request/response for
// single turns, server-sent events for streamed replies, history and proof
// lookups, backend status and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mrarejimmyz/chatcore"
	"github.com/mrarejimmyz/chatcore/backend"
	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/logging"
	"github.com/mrarejimmyz/chatcore/proof"
	"github.com/mrarejimmyz/chatcore/stream"
)

// Service is the chat surface the server exposes. *chatcore.ChatCore
// implements it.
type Service interface {
	GenerateResponse(ctx context.Context, conversationID, message string, optFns ...func(o *chatcore.RequestOptions)) *core.Response
	StreamResponse(ctx context.Context, conversationID, message string, optFns ...func(o *chatcore.RequestOptions)) *stream.Stream
	ClearHistory(ctx context.Context, conversationID string) error
	GetHistory(ctx context.Context, conversationID string) ([]core.Message, error)
	Backends() []backend.Descriptor
	ProbeBackends(ctx context.Context) []backend.Descriptor
	Proofs() core.ProofStore
}

var _ Service = (*chatcore.ChatCore)(nil)

// Options configures a Server.
type Options struct {
	Logger logging.Logger
	// Metrics is served on /metrics when set.
	Metrics http.Handler
}

// Server wraps an echo instance bound to a Service.
type Server struct {
	svc    Service
	echo   *echo.Echo
	logger logging.Logger
}

// MessageRequest is the body of the message and stream endpoints.
type MessageRequest struct {
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StreamEvent is the data payload of one SSE event.
type StreamEvent struct {
	Type     string         `json:"type"` // token | done
	Content  string         `json:"content,omitempty"`
	Response *core.Response `json:"response,omitempty"`
}

// New creates a Server and registers its routes.
func New(svc Service, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{svc: svc, echo: e, logger: logging.OrNoOp(opts.Logger)}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("http.request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.GET("/healthz", s.health)
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}

	v1 := e.Group("/v1")
	v1.GET("/backends", s.backends)
	v1.POST("/conversations/:id/messages", s.postMessage)
	v1.POST("/conversations/:id/stream", s.streamMessage)
	v1.GET("/conversations/:id/messages", s.history)
	v1.DELETE("/conversations/:id/messages", s.clear)
	v1.GET("/conversations/:id/proofs/:proof", s.getProof)

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting HTTP server", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) backends(c echo.Context) error {
	if c.QueryParam("probe") == "true" {
		return c.JSON(http.StatusOK, s.svc.ProbeBackends(c.Request().Context()))
	}
	return c.JSON(http.StatusOK, s.svc.Backends())
}

func bindMessage(c echo.Context) (*MessageRequest, error) {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return nil, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is required"})
	}
	return &req, nil
}

func withContext(req *MessageRequest) func(o *chatcore.RequestOptions) {
	return func(o *chatcore.RequestOptions) { o.Context = req.Context }
}

func (s *Server) postMessage(c echo.Context) error {
	req, err := bindMessage(c)
	if req == nil {
		return err
	}
	resp := s.svc.GenerateResponse(c.Request().Context(), c.Param("id"), req.Message, withContext(req))
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) streamMessage(c echo.Context) error {
	req, err := bindMessage(c)
	if req == nil {
		return err
	}
	ctx := c.Request().Context()
	st := s.svc.StreamResponse(ctx, c.Param("id"), req.Message, withContext(req))

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for chunk := range st.Chan(ctx) {
		ev := StreamEvent{Type: "token", Content: chunk.Delta}
		if chunk.Done {
			ev = StreamEvent{Type: "done", Response: chunk.Response}
		}
		if err := writeEvent(w, ev); err != nil {
			s.logger.Warn("Failed to write stream event", "conversation_id", c.Param("id"), "error", err.Error())
			return nil
		}
		w.Flush()
	}
	return nil
}

func writeEvent(w *echo.Response, ev StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

func (s *Server) history(c echo.Context) error {
	msgs, err := s.svc.GetHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("Failed to read history", "conversation_id", c.Param("id"), "error", err.Error())
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read history"})
	}
	return c.JSON(http.StatusOK, msgs)
}

func (s *Server) clear(c echo.Context) error {
	if err := s.svc.ClearHistory(c.Request().Context(), c.Param("id")); err != nil {
		s.logger.Error("Failed to clear history", "conversation_id", c.Param("id"), "error", err.Error())
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to clear history"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getProof(c echo.Context) error {
	r, err := proof.Verify(s.svc.Proofs(), c.Param("id"), c.Param("proof"))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, r)
	case errors.Is(err, proof.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "proof not found"})
	case errors.Is(err, proof.ErrTampered):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load proof"})
	}
}
