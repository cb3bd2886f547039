package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Aashish23092/conciliador/client"
	"github.com/Aashish23092/conciliador/handler"
	"github.com/Aashish23092/conciliador/service"
	"github.com/Aashish23092/conciliador/store"
)

const shutdownTimeout = 30 * time.Second

func (a *App) newServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == "" {
				port = a.cfg.Server.Port
			}
			publisher := client.NewPublisher(a.cfg.Kafka)
			defer publisher.Close()

			return a.withStore(func(st store.Store) error {
				router := a.router(st, publisher)
				srv := &http.Server{
					Addr:              ":" + port,
					Handler:           router,
					ReadHeaderTimeout: 10 * time.Second,
				}
				return a.serveWithGracefulShutdown(cmd.Context(), srv)
			})
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (defaults to server.port)")
	return cmd
}

func (a *App) router(st store.Store, publisher client.EventPublisher) *gin.Engine {
	if a.cfg.Log.Level != "debug" && a.cfg.Log.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	pdf := service.NewPDFProcessor()
	syncService := a.syncService(st, publisher)
	h := handler.Handlers{
		Expedientes: handler.NewExpedienteHandler(service.NewExpedienteService(st)),
		Processing: handler.NewProcessingHandler(
			service.NewInvoiceService(pdf, a.cfg.Extraction, a.metrics, a.logger),
			service.NewOrderService(pdf, a.cfg.Extraction, a.metrics, a.logger),
			syncService,
			a.cfg.ClientID,
		),
		Sync: handler.NewSyncHandler(syncService),
	}
	return handler.NewRouter(h, a.metrics, a.logger, a.cfg.Server.MaxUploadMB)
}

// serveWithGracefulShutdown runs srv until ctx is canceled.
func (a *App) serveWithGracefulShutdown(ctx context.Context, srv *http.Server) error {
	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		a.logger.Info().Msg("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		a.logger.Info().Msg("server stopped gracefully")
		return nil
	}
}
