package sqs

import (
	"context"
	"encoding/json"
	"fmt"

	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SendJobMessage is the queue payload linking a send job to the release and
// outlet lists it fans out over.
type SendJobMessage struct {
	OrgID         string   `json:"orgId"`
	JobID         string   `json:"jobId"`
	ReleaseID     string   `json:"releaseId"`
	OutletListIDs []string `json:"outletListIds"`
}

type Producer struct {
	SQS      *awssqs.Client
	QueueURL string
}

func NewProducer(client *awssqs.Client, queueURL string) *Producer {
	return &Producer{SQS: client, QueueURL: queueURL}
}

func (p *Producer) EnqueueSendJob(ctx context.Context, orgID, jobID, releaseID string, outletListIDs []string) error {
	body, err := json.Marshal(SendJobMessage{
		OrgID:         orgID,
		JobID:         jobID,
		ReleaseID:     releaseID,
		OutletListIDs: outletListIDs,
	})
	if err != nil {
		return fmt.Errorf("marshaling send job message: %w", err)
	}
	_, err = p.SQS.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:    str(p.QueueURL),
		MessageBody: str(string(body)),
	})
	if err != nil {
		return fmt.Errorf("enqueuing send job: %w", err)
	}
	return nil
}

func str(s string) *string { return &s }
