package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"pressdesk/internal/store"
)

func (s *Store) GetRelease(ctx context.Context, orgID, releaseID string) (store.Release, bool, error) {
	out, err := s.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Table),
		Key:       itemKey(orgPK(orgID), releaseSK(releaseID)),
	})
	if err != nil {
		return store.Release{}, false, err
	}
	if out.Item == nil {
		return store.Release{}, false, nil
	}
	var item releaseItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return store.Release{}, false, err
	}
	return store.Release{
		OrgID:     orgID,
		ReleaseID: releaseID,
		Headline:  item.Headline,
		Body:      item.Body,
		Opens:     item.Opens,
		Clicks:    item.Clicks,
	}, true, nil
}
