package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/wkamphuis/invoiceflow/internal/adapters/http"
	"github.com/wkamphuis/invoiceflow/internal/bootstrap"
	"github.com/wkamphuis/invoiceflow/internal/config"
	"github.com/wkamphuis/invoiceflow/internal/observability/logging"
	"github.com/wkamphuis/invoiceflow/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("invoiceflow-api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics("invoiceflow-api")
	router := httpadapter.NewRouter(
		app.UploadUC,
		app.ExtractUC,
		app.ValidateUC,
		app.SubmitUC,
		app.QueryUC,
		app.Exporter,
		httpadapter.WithMaxUploadBytes(cfg.MaxUploadBytes),
		httpadapter.WithTrafficControl(cfg.APIRateLimitRPS, cfg.APIRateLimitBurst, cfg.APIMaxInFlight),
		httpadapter.WithMetricsHandler(serverMetrics.Handler()),
		httpadapter.WithPipelineRecorder("invoiceflow-api", serverMetrics),
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      serverMetrics.Middleware("invoiceflow-api", router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
