package config

import "github.com/kelseyhightower/envconfig"

type WebhookConfig struct {
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	// AWS / DynamoDB
	AWSRegion      string `envconfig:"AWS_REGION" required:"true"`
	DynamoTable    string `envconfig:"DYNAMO_TABLE" required:"true"`
	DynamoEndpoint string `envconfig:"DYNAMO_ENDPOINT"` // LocalStack / DynamoDB Local

	// Engagement webhook signature verification. An empty key selects the
	// permissive warn-and-allow mode; see providers/sendgrid.
	WebhookPublicKey string `envconfig:"SENDGRID_WEBHOOK_PUBLIC_KEY"`
}

type WorkerConfig struct {
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	// AWS / DynamoDB
	AWSRegion      string `envconfig:"AWS_REGION" required:"true"`
	DynamoTable    string `envconfig:"DYNAMO_TABLE" required:"true"`
	DynamoEndpoint string `envconfig:"DYNAMO_ENDPOINT"`

	// SQS
	SQSQueueURL        string `envconfig:"SQS_QUEUE_URL" required:"true"`
	LocalstackEndpoint string `envconfig:"LOCALSTACK_ENDPOINT"`
	SQSWaitTime        int32  `envconfig:"SQS_WAIT_TIME" default:"20"`
	SQSMaxMsgs         int32  `envconfig:"SQS_MAX_MSGS" default:"10"`
	SQSVizTimeout      int32  `envconfig:"SQS_VISIBILITY_TIMEOUT" default:"300"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"4"`

	// SendGrid
	SendGridAPIKey  string  `envconfig:"SENDGRID_API_KEY" required:"true"`
	SendGridBaseURL string  `envconfig:"SENDGRID_BASE_URL" default:"https://api.sendgrid.com"`
	FromEmail       string  `envconfig:"FROM_EMAIL" required:"true"`
	FromName        string  `envconfig:"FROM_NAME" default:"Press Desk"`
	SendRPSPerPod   float64 `envconfig:"SEND_RPS_PER_POD" default:"10"`
	SendBurst       int     `envconfig:"SEND_BURST" default:"20"`
}

type APIConfig struct {
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	// AWS / DynamoDB / SQS
	AWSRegion          string `envconfig:"AWS_REGION" required:"true"`
	DynamoTable        string `envconfig:"DYNAMO_TABLE" required:"true"`
	DynamoEndpoint     string `envconfig:"DYNAMO_ENDPOINT"`
	SQSQueueURL        string `envconfig:"SQS_QUEUE_URL" required:"true"`
	LocalstackEndpoint string `envconfig:"LOCALSTACK_ENDPOINT"`
}

func LoadWebhook() WebhookConfig {
	var cfg WebhookConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadWorker() WorkerConfig {
	var cfg WorkerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadAPI() APIConfig {
	var cfg APIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}
