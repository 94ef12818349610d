package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pressdesk/internal/awsutil"
	"pressdesk/internal/config"
	"pressdesk/internal/httpserver"
	"pressdesk/internal/logging"
	"pressdesk/internal/observability"
	"pressdesk/internal/providers/sendgrid"
	"pressdesk/internal/store/dynamo"
)

func main() {
	cfg := config.LoadWebhook()
	logging.Init("webhook", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := awsutil.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
	if err != nil {
		slog.Error("webhook dynamodb client init failed", "err", err)
		os.Exit(1)
	}
	st := dynamo.New(db, cfg.DynamoTable)

	verifier, err := sendgrid.NewVerifier(cfg.WebhookPublicKey)
	if err != nil {
		slog.Error("webhook verifier init failed", "err", err)
		os.Exit(1)
	}
	if verifier.Mode == sendgrid.ModeWarnAndAllow {
		slog.Warn("webhook signature verification disabled, no public key configured",
			"mode", verifier.Mode.String())
	}

	observability.Register(prometheus.DefaultRegisterer)

	srv := httpserver.New()
	srv.Mux.Use(httpserver.Logging)

	wh := &httpserver.Webhook{Store: st, Verifier: verifier}
	wh.Register(srv.Mux)

	srv.Mux.HandleFunc("/healthz", httpserver.Healthz()).Methods(http.MethodGet)
	srv.Mux.HandleFunc("/readyz", httpserver.Readyz(2*time.Second, st.Ping)).Methods(http.MethodGet)

	mainSrv := &http.Server{Addr: ":" + cfg.Port, Handler: srv.Mux}
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: promhttp.Handler()}

	errCh := make(chan error, 2)
	go func() {
		slog.Info("webhook listening", "port", cfg.Port)
		errCh <- mainSrv.ListenAndServe()
	}()
	go func() {
		slog.Info("webhook metrics listening", "port", cfg.MetricsPort)
		errCh <- metricsSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("webhook server failed", "err", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		slog.Info("webhook shutdown", "signal", sig.String())
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = mainSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
