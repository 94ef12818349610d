package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"pressdesk/internal/store"
)

// ListRecipients returns every recipient of one outlet list, following
// pagination to the end.
func (s *Store) ListRecipients(ctx context.Context, orgID, listID string) ([]store.Recipient, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Table),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: orgPK(orgID)},
			":prefix": &types.AttributeValueMemberS{Value: recipientSKPrefix(listID)},
		},
	}

	var recipients []store.Recipient
	for {
		out, err := s.DB.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, raw := range out.Items {
			var item recipientItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, err
			}
			recipients = append(recipients, store.Recipient{
				Email:  item.Email,
				Name:   item.Name,
				Outlet: item.Outlet,
			})
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return recipients, nil
}
