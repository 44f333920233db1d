// Package transport implements the HTTP event endpoint the node posts
// decoded-ready event messages to.
package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/ingesterr"
	"github.com/chainwatch/event-ingest/internal/queue"
	"github.com/chainwatch/event-ingest/internal/store"
)

// maxBodyBytes caps the request body the node can post in a single
// message.
const maxBodyBytes = "500M"

// Handler is the common shape every route handler in internal/handler
// implements: decode the body, normalize it, commit it.
type Handler interface {
	Handle(ctx context.Context, body []byte) error
}

// Server wraps an echo.Echo instance configured with the event
// routes, the raw-request recording middleware, and the
// serialization queue every route handler is submitted through.
type Server struct {
	echo   *echo.Echo
	queue  *queue.Queue
	store  store.Store
	logger *zap.Logger
	srv    *http.Server
}

// Routes bundles the per-endpoint handlers the server dispatches to.
type Routes struct {
	Block       Handler
	Microblocks Handler
	BurnBlock   Handler
	MempoolNew  Handler
	MempoolDrop Handler
	Attachments Handler
}

// New constructs a Server bound to addr, wiring routes through q so
// every commit is serialized through the single queue worker.
func New(addr string, s store.Store, q *queue.Queue, routes Routes, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.BodyLimit(maxBodyBytes))
	e.Use(recordRawRequest(s, logger))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ready", "msg": "ingestion core is up"})
	})

	register := func(path string, h Handler) {
		e.POST(path, func(c echo.Context) error {
			body, err := readBody(c)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
			}
			err = q.Submit(c.Request().Context(), func(ctx context.Context) error {
				return h.Handle(ctx, body)
			})
			if err != nil {
				logger.Error("handler failed", zap.String("path", path), zap.Error(err), zap.Binary("body", truncateForLog(body)))
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
			}
			return c.JSON(http.StatusOK, map[string]string{"result": "ok"})
		})
	}

	register("/new_block", routes.Block)
	register("/new_microblocks", routes.Microblocks)
	register("/new_burn_block", routes.BurnBlock)
	register("/new_mempool_tx", routes.MempoolNew)
	register("/drop_mempool_tx", routes.MempoolDrop)
	register("/attachments/new", routes.Attachments)

	return &Server{
		echo:   e,
		queue:  q,
		store:  s,
		logger: logger.Named("transport"),
		srv: &http.Server{
			Addr:              addr,
			Handler:           e,
			ReadTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// ListenAndServe blocks serving HTTP requests until ctx is canceled,
// then drains via Shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.logger.Info("starting http server", zap.String("addr", s.srv.Addr))
	return s.serve(ctx, s.srv.ListenAndServe)
}

// Serve behaves like ListenAndServe but accepts connections from an
// already-bound listener, letting callers pick an ephemeral loopback
// port ahead of time (replay's in-process target endpoint).
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting http server", zap.String("addr", ln.Addr().String()))
	return s.serve(ctx, func() error { return s.srv.Serve(ln) })
}

func (s *Server) serve(ctx context.Context, listenAndServe func() error) error {
	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown failed", zap.Error(err))
		}
	}()

	if err := listenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func readBody(c echo.Context) ([]byte, error) {
	defer c.Request().Body.Close()
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, ingesterr.New(ingesterr.KindDecode, err)
	}
	return body, nil
}

// truncateForLog bounds a logged payload to 10 MB, per the error
// handling design's cap on logging offending bodies.
func truncateForLog(body []byte) []byte {
	const max = 10 << 20
	if len(body) <= max {
		return body
	}
	return body[:max]
}
