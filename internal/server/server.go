package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"docstore-handles/internal/common/logging"
)

// Server represents an HTTP server
type Server struct {
	srv      *http.Server
	logger   logging.Logger
	listener net.Listener
	errCh    chan error
}

// New creates a new server instance listening on port. Port "0" picks a free port.
func New(handler http.Handler, port string, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{
		srv: &http.Server{
			Addr:         ":" + port,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
		errCh:  make(chan error, 1),
	}
}

// Start binds the listen address and serves in the background. Bind errors
// are returned; later serve errors are reported on Errors.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.logger.Info("HTTP server listening", logging.String("addr", ln.Addr().String()))

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.errCh <- err
		}
		close(s.errCh)
	}()
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.srv.Addr
	}
	return s.listener.Addr().String()
}

// Errors delivers a serve failure, if any, and is closed when serving stops.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
