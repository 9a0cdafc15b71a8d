package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"spirolink-backend/internal/logging"
)

// Server owns the listening HTTP server and its shutdown.
type Server struct {
	http   *http.Server
	grace  time.Duration
	logger *logging.Logger
}

func New(addr string, handler http.Handler, grace time.Duration, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if grace <= 0 {
		grace = 10 * time.Second
	}
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		grace:  grace,
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to the grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", zap.Duration("grace", s.grace))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
