package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pressdesk/internal/awsutil"
	"pressdesk/internal/config"
	"pressdesk/internal/httpserver"
	"pressdesk/internal/logging"
	"pressdesk/internal/observability"
	sqsqueue "pressdesk/internal/queue/sqs"
	"pressdesk/internal/service"
	"pressdesk/internal/store/dynamo"
	"pressdesk/internal/util"
)

func main() {
	cfg := config.LoadAPI()
	logging.Init("api", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := awsutil.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
	if err != nil {
		slog.Error("api dynamodb client init failed", "err", err)
		os.Exit(1)
	}
	st := dynamo.New(db, cfg.DynamoTable)

	sqsClient, err := awsutil.NewSQSClient(ctx, cfg.AWSRegion, cfg.LocalstackEndpoint)
	if err != nil {
		slog.Error("api sqs client init failed", "err", err)
		os.Exit(1)
	}
	producer := sqsqueue.NewProducer(sqsClient, cfg.SQSQueueURL)

	observability.Register(prometheus.DefaultRegisterer)

	svc := &service.ReleaseService{Store: st, Queue: producer}

	srv := httpserver.New()
	srv.Mux.Use(httpserver.Logging)
	srv.Mux.Use(httpserver.Metrics(observability.APIRequests))

	api := &httpserver.API{Svc: svc, IDGen: util.NewJobID}
	api.Register(srv.Mux)

	srv.Mux.HandleFunc("/healthz", httpserver.Healthz()).Methods(http.MethodGet)
	srv.Mux.HandleFunc("/readyz", httpserver.Readyz(2*time.Second,
		st.Ping,
		func(c context.Context) error {
			_, err := sqsClient.GetQueueAttributes(c, &awssqs.GetQueueAttributesInput{
				QueueUrl:       &cfg.SQSQueueURL,
				AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
			})
			return err
		},
	)).Methods(http.MethodGet)

	mainSrv := &http.Server{Addr: ":" + cfg.Port, Handler: srv.Mux}
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: promhttp.Handler()}

	errCh := make(chan error, 2)
	go func() {
		slog.Info("api listening", "port", cfg.Port)
		errCh <- mainSrv.ListenAndServe()
	}()
	go func() {
		slog.Info("api metrics listening", "port", cfg.MetricsPort)
		errCh <- metricsSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("api server failed", "err", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		slog.Info("api shutdown", "signal", sig.String())
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = mainSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
