// Package httpserver serves the browser-facing HTML application: routes,
// middleware, cookies and templates on top of gin.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/usersecrets/internal/logging"
	"github.com/gin-gonic/gin"
)

type Options struct {
	Address         string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type HTTPServer struct {
	address         string
	shutdownTimeout time.Duration
	engine          *gin.Engine
	logger          logging.Logger
}

func NewHTTPServer(opts Options, h *Handler, l logging.Logger) (*HTTPServer, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.SetHTMLTemplate(tmpl)
	h.routes(engine, opts.AllowedOrigins)

	return &HTTPServer{
		address:         opts.Address,
		shutdownTimeout: opts.ShutdownTimeout,
		engine:          engine,
		logger:          l.With("module", "http_server"),
	}, nil
}

// Handler exposes the router, e.g. for httptest.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most the shutdown timeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-done
	return nil
}
