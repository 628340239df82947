// routes_serve.go - Server-Start und Lifecycle-Management
// Enthaelt: Serve() - startet den HTTP-Server bis Signal oder ctx-Ende

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sketch2face/sketch2face/version"
)

// shutdownTimeout begrenzt das Warten auf laufende Anfragen beim Beenden
const shutdownTimeout = 30 * time.Second

// Serve bedient ln bis ctx endet oder SIGINT/SIGTERM eintrifft. Laufende
// Generierungen duerfen noch fertig werden.
func Serve(ctx context.Context, ln net.Listener, s *Server) error {
	if s.opts.Addr == nil {
		s.opts.Addr = ln.Addr()
	}

	srvr := &http.Server{
		Handler:           s.GenerateRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version))
		errCh <- srvr.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srvr.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
