package dynamo

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"pressdesk/internal/store"
)

func (s *Store) InsertSendJob(ctx context.Context, in store.SendJobInsert) error {
	av, err := attributevalue.MarshalMap(jobItem{
		PK:            orgPK(in.OrgID),
		SK:            jobSK(in.ID),
		JobID:         in.ID,
		OrgID:         in.OrgID,
		ReleaseID:     in.ReleaseID,
		OutletListIDs: in.OutletListIDs,
		JobStatus:     in.Status,
		CreatedAt:     in.Now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = s.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.Table),
		Item:      av,
	})
	return err
}

// ClaimSendJob moves a job from queued to processing. A redelivered queue
// message finds the job already claimed and gets false back.
func (s *Store) ClaimSendJob(ctx context.Context, orgID, jobID string, now time.Time) (bool, error) {
	_, err := s.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.Table),
		Key:                 itemKey(orgPK(orgID), jobSK(jobID)),
		UpdateExpression:    aws.String("SET JobStatus = :processing, StartedAt = :now"),
		ConditionExpression: aws.String("JobStatus = :queued"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":processing": &types.AttributeValueMemberS{Value: "processing"},
			":queued":     &types.AttributeValueMemberS{Value: "queued"},
			":now":        &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func itoa(n int) string { return strconv.Itoa(n) }

func (s *Store) FinishSendJob(ctx context.Context, in store.SendJobFinish) error {
	_, err := s.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.Table),
		Key:              itemKey(orgPK(in.OrgID), jobSK(in.ID)),
		UpdateExpression: aws.String("SET JobStatus = :s, SentCount = :sent, FailedCount = :failed, LastError = :err, CompletedAt = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s":      &types.AttributeValueMemberS{Value: in.Status},
			":sent":   &types.AttributeValueMemberN{Value: itoa(in.SentCount)},
			":failed": &types.AttributeValueMemberN{Value: itoa(in.FailedCount)},
			":err":    &types.AttributeValueMemberS{Value: in.LastError},
			":now":    &types.AttributeValueMemberS{Value: in.Now.UTC().Format(time.RFC3339)},
		},
	})
	return err
}

func (s *Store) GetSendJob(ctx context.Context, orgID, jobID string) (store.SendJob, bool, error) {
	out, err := s.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Table),
		Key:       itemKey(orgPK(orgID), jobSK(jobID)),
	})
	if err != nil {
		return store.SendJob{}, false, err
	}
	if out.Item == nil {
		return store.SendJob{}, false, nil
	}
	var item jobItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return store.SendJob{}, false, err
	}
	return store.SendJob{
		ID:            item.JobID,
		OrgID:         item.OrgID,
		ReleaseID:     item.ReleaseID,
		OutletListIDs: item.OutletListIDs,
		Status:        item.JobStatus,
		SentCount:     item.SentCount,
		FailedCount:   item.FailedCount,
		LastError:     item.LastError,
		CreatedAt:     parseTime(item.CreatedAt),
		StartedAt:     parseTime(item.StartedAt),
		CompletedAt:   parseTime(item.CompletedAt),
	}, true, nil
}
