package sqs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Handler processes one send job message. A nil return deletes the message;
// an error leaves it on the queue for redelivery after the visibility
// timeout.
type Handler func(ctx context.Context, msg SendJobMessage) error

type Consumer struct {
	SQS               *awssqs.Client
	QueueURL          string
	WaitTimeSeconds   int32
	MaxMessages       int32
	VisibilityTimeout int32
}

func NewConsumer(client *awssqs.Client, queueURL string) *Consumer {
	return &Consumer{
		SQS:               client,
		QueueURL:          queueURL,
		WaitTimeSeconds:   20,
		MaxMessages:       10,
		VisibilityTimeout: 120,
	}
}

// PollConcurrent long-polls the queue and fans messages out to a fixed pool
// of workers. It returns when ctx is canceled, after in-flight handlers
// finish, or on a receive error.
func (c *Consumer) PollConcurrent(ctx context.Context, workers int, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}

	msgs := make(chan types.Message)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range msgs {
				c.handleMessage(ctx, m, handler)
			}
		}()
	}

	go func() {
		defer close(msgs)
		for {
			if ctx.Err() != nil {
				return
			}
			out, err := c.SQS.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
				QueueUrl:            str(c.QueueURL),
				MaxNumberOfMessages: c.MaxMessages,
				WaitTimeSeconds:     c.WaitTimeSeconds,
				VisibilityTimeout:   c.VisibilityTimeout,
			})
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case errCh <- err:
				default:
				}
				return
			}
			for _, m := range out.Messages {
				select {
				case msgs <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	wg.Wait()
	select {
	case err := <-errCh:
		return err
	default:
	}
	return ctx.Err()
}

func (c *Consumer) handleMessage(ctx context.Context, m types.Message, handler Handler) {
	var job SendJobMessage
	if err := json.Unmarshal([]byte(deref(m.Body)), &job); err != nil {
		// A payload that cannot parse will never parse; drop it.
		slog.Error("dropping malformed send job message", "error", err)
		c.delete(ctx, m)
		return
	}
	if err := handler(ctx, job); err != nil {
		slog.Error("send job handler failed, leaving message for redelivery",
			"jobId", job.JobID, "orgId", job.OrgID, "error", err)
		return
	}
	c.delete(ctx, m)
}

func (c *Consumer) delete(ctx context.Context, m types.Message) {
	if _, err := c.SQS.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      str(c.QueueURL),
		ReceiptHandle: m.ReceiptHandle,
	}); err != nil {
		slog.Error("deleting message", "error", err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
