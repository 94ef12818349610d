package main

import (
	"context"
	"errors"
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
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"pressdesk/internal/awsutil"
	"pressdesk/internal/config"
	"pressdesk/internal/httpserver"
	"pressdesk/internal/logging"
	"pressdesk/internal/observability"
	"pressdesk/internal/providers/sendgrid"
	sqsqueue "pressdesk/internal/queue/sqs"
	"pressdesk/internal/store/dynamo"
	"pressdesk/internal/worker"
)

func main() {
	cfg := config.LoadWorker()
	logging.Init("worker", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := awsutil.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
	if err != nil {
		slog.Error("worker dynamodb client init failed", "err", err)
		os.Exit(1)
	}
	st := dynamo.New(db, cfg.DynamoTable)

	sqsClient, err := awsutil.NewSQSClient(ctx, cfg.AWSRegion, cfg.LocalstackEndpoint)
	if err != nil {
		slog.Error("worker sqs client init failed", "err", err)
		os.Exit(1)
	}

	observability.Register(prometheus.DefaultRegisterer)

	sender := &sendgrid.Client{
		APIKey:    cfg.SendGridAPIKey,
		HTTP:      &http.Client{Timeout: 8 * time.Second},
		BaseURL:   cfg.SendGridBaseURL,
		FromEmail: cfg.FromEmail,
		FromName:  cfg.FromName,
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sendgrid",
		MaxRequests: 3,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 10
		},
	})

	proc := &worker.Processor{
		Store:   st,
		Sender:  sender,
		Limiter: rate.NewLimiter(rate.Limit(cfg.SendRPSPerPod), cfg.SendBurst),
		Breaker: breaker,
	}

	consumer := &sqsqueue.Consumer{
		SQS:               sqsClient,
		QueueURL:          cfg.SQSQueueURL,
		WaitTimeSeconds:   cfg.SQSWaitTime,
		MaxMessages:       cfg.SQSMaxMsgs,
		VisibilityTimeout: cfg.SQSVizTimeout,
	}

	// health + metrics servers
	healthMux := httpserver.New().Mux
	healthMux.Use(httpserver.Logging)
	healthMux.HandleFunc("/healthz", httpserver.Healthz()).Methods(http.MethodGet)
	healthMux.HandleFunc("/readyz", httpserver.Readyz(2*time.Second,
		st.Ping,
		func(c context.Context) error {
			_, err := sqsClient.GetQueueAttributes(c, &awssqs.GetQueueAttributesInput{
				QueueUrl:       &cfg.SQSQueueURL,
				AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
			})
			return err
		},
	)).Methods(http.MethodGet)

	healthSrv := &http.Server{Addr: ":" + cfg.Port, Handler: healthMux}
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: promhttp.Handler()}

	srvErrCh := make(chan error, 2)
	go func() {
		slog.Info("worker health listening", "port", cfg.Port)
		srvErrCh <- healthSrv.ListenAndServe()
	}()
	go func() {
		slog.Info("worker metrics listening", "port", cfg.MetricsPort)
		srvErrCh <- metricsSrv.ListenAndServe()
	}()

	pollErrCh := make(chan error, 1)
	go func() {
		slog.Info("worker starting poll", "queue_url", cfg.SQSQueueURL, "concurrency", cfg.WorkerConcurrency)
		pollErrCh <- consumer.PollConcurrent(ctx, cfg.WorkerConcurrency, func(ctx context.Context, job sqsqueue.SendJobMessage) error {
			slog.Info("send job received", "job_id", job.JobID, "org_id", job.OrgID, "release_id", job.ReleaseID)
			return proc.Process(ctx, job)
		})
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-pollErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("worker poll failed", "err", err)
			os.Exit(1)
		}
	case err := <-srvErrCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("worker server failed", "err", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		slog.Info("worker shutdown", "signal", sig.String())
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = healthSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	select {
	case <-pollErrCh:
	case <-time.After(10 * time.Second):
		slog.Info("worker shutdown timeout waiting for poll loop")
	}
}
