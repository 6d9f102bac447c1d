package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/asad/azurefs/internal/core"
	"github.com/asad/azurefs/internal/httpx"
	"github.com/asad/azurefs/internal/logging"
	"github.com/asad/azurefs/internal/services/files"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the disk over HTTP",
		Long: `Start the HTTP gateway for the selected disk. Files are served under
/files, with /health and /metrics alongside.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default $GATEWAY_PORT or 8080)")
	return cmd
}

// runServe initializes and starts the HTTP server. It returns once ctx is
// cancelled or the process receives SIGINT/SIGTERM.
func runServe(ctx context.Context, opts *globalOptions, port int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	if port == 0 {
		port = s.cfg.GatewayPort
	}

	s.logger.Info("starting azurefs",
		logging.String("version", Version),
		logging.Int("port", port),
		logging.String("disk", s.disk.Name()),
		logging.String("driver", s.disk.Driver()),
		logging.String("log_level", s.cfg.LogLevel),
	)

	services := core.NewRegistry()
	services.Register(files.NewFilesService(s.disk, s.logger))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           httpx.NewEdgeRouter(services, httpx.NewMetrics(), s.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", logging.String("address", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
