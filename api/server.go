package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Server owns the HTTP listener for the storefront API.
type Server struct {
	srv  *http.Server
	logg *logger.Logger
}

// NewServer binds handler to addr. Write timeouts stay off so cart event streams are not cut.
func NewServer(addr string, handler http.Handler, logg *logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleTimeout,
		},
		logg: logg,
	}
}

// Addr reports the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logg.Info(ctx, "api server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
