package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/bft-labs/shipctl/internal/ports"
)

// Server runs the API on a TCP address.
type Server struct {
	srv    *http.Server
	logger ports.Logger
}

// NewServer creates a server for handler on addr.
func NewServer(addr string, handler http.Handler, logger ports.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start listens and serves in the background. It returns once the listener
// is bound so that callers see address errors immediately.
func (s *Server) Start() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", ports.Err(err))
		}
	}()
	s.logger.Info("http api listening", ports.String("addr", ln.Addr().String()))
	return ln.Addr(), nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
