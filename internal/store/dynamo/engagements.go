package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"pressdesk/internal/observability"
	"pressdesk/internal/store"
)

// CommitEngagements persists normalized engagement events together with their
// release counter increments. Events are deduplicated by id, chunked under the
// transaction ceiling, and each chunk commits as one atomic unit: a blind put
// per event plus one coalesced ADD update per touched release. DynamoDB
// rejects two operations on the same item in one transaction, so per-event
// increments fold into a single update per release; equivalent by
// commutativity.
//
// Counter increments are staged only for event ids not already stored, so a
// provider redelivery of the same batch rewrites identical event records
// without double-counting. A failed chunk aborts the remainder and surfaces
// the error; chunks already committed stand, which is safe because every
// write here is idempotent and the provider retries the whole batch.
//
// Returns the number of events staged across committed chunks.
func (s *Store) CommitEngagements(ctx context.Context, events []store.EngagementEvent) (int, error) {
	events = dedupeByID(events)
	persisted := 0
	for _, chunk := range chunkEvents(events, MaxEventsPerChunk) {
		existing, err := s.existingEventRefs(ctx, chunk)
		if err != nil {
			return persisted, err
		}
		items, err := transactItems(s.Table, chunk, existing)
		if err != nil {
			return persisted, err
		}
		if _, err := s.DB.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		}); err != nil {
			observability.CommitChunks.WithLabelValues("error").Inc()
			return persisted, fmt.Errorf("committing engagement chunk: %w", err)
		}
		observability.CommitChunks.WithLabelValues("ok").Inc()
		persisted += len(chunk)
	}
	return persisted, nil
}

// dedupeByID drops later occurrences of the same deterministic id within one
// batch; they are the same logical event and must count once.
func dedupeByID(events []store.EngagementEvent) []store.EngagementEvent {
	seen := make(map[string]struct{}, len(events))
	out := make([]store.EngagementEvent, 0, len(events))
	for _, ev := range events {
		ref := eventRef(ev)
		if _, dup := seen[ref]; dup {
			observability.WebhookSkips.WithLabelValues("duplicate_in_batch").Inc()
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ev)
	}
	return out
}

func chunkEvents(events []store.EngagementEvent, size int) [][]store.EngagementEvent {
	if size <= 0 {
		size = MaxEventsPerChunk
	}
	var chunks [][]store.EngagementEvent
	for len(events) > size {
		chunks = append(chunks, events[:size])
		events = events[size:]
	}
	if len(events) > 0 {
		chunks = append(chunks, events)
	}
	return chunks
}

func eventRef(ev store.EngagementEvent) string {
	return orgPK(ev.OrgID) + "/" + eventSK(ev.ID)
}

// existingEventRefs reads (consistently) which of the chunk's event ids are
// already stored, so replays contribute no counter increments.
func (s *Store) existingEventRefs(ctx context.Context, events []store.EngagementEvent) (map[string]struct{}, error) {
	keys := make([]map[string]types.AttributeValue, 0, len(events))
	for _, ev := range events {
		keys = append(keys, itemKey(orgPK(ev.OrgID), eventSK(ev.ID)))
	}

	out := make(map[string]struct{})
	for len(keys) > 0 {
		resp, err := s.DB.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				s.Table: {
					Keys:                 keys,
					ProjectionExpression: aws.String("PK, SK"),
					ConsistentRead:       aws.Bool(true),
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("reading existing event ids: %w", err)
		}
		for _, item := range resp.Responses[s.Table] {
			var k struct {
				PK string `dynamodbav:"PK"`
				SK string `dynamodbav:"SK"`
			}
			if err := attributevalue.UnmarshalMap(item, &k); err != nil {
				return nil, err
			}
			out[k.PK+"/"+k.SK] = struct{}{}
		}
		keys = nil
		if unprocessed, ok := resp.UnprocessedKeys[s.Table]; ok {
			keys = unprocessed.Keys
		}
	}
	return out, nil
}

type releaseRef struct {
	orgID     string
	releaseID string
}

type counterDelta struct {
	opens  int64
	clicks int64
}

// transactItems stages one chunk: a put per event and, for events not already
// stored, one coalesced counter update per release. Only open and click
// events mutate counters.
func transactItems(table string, events []store.EngagementEvent, existing map[string]struct{}) ([]types.TransactWriteItem, error) {
	items := make([]types.TransactWriteItem, 0, len(events)+4)
	deltas := make(map[releaseRef]*counterDelta)
	var order []releaseRef

	for _, ev := range events {
		av, err := attributevalue.MarshalMap(newEventItem(ev))
		if err != nil {
			return nil, fmt.Errorf("marshaling engagement event: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(table), Item: av},
		})

		if _, replay := existing[eventRef(ev)]; replay {
			continue
		}

		ref := releaseRef{orgID: ev.OrgID, releaseID: ev.ReleaseID}
		d := deltas[ref]
		if d == nil {
			d = &counterDelta{}
			deltas[ref] = d
			order = append(order, ref)
		}
		switch ev.EventType {
		case "open":
			d.opens++
		case "click":
			d.clicks++
		}
	}

	for _, ref := range order {
		d := deltas[ref]
		if d.opens == 0 && d.clicks == 0 {
			continue
		}
		// ADD creates the counters if the release record is missing rather
		// than failing the whole chunk.
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:        aws.String(table),
				Key:              itemKey(orgPK(ref.orgID), releaseSK(ref.releaseID)),
				UpdateExpression: aws.String("ADD opens :o, clicks :c"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":o": &types.AttributeValueMemberN{Value: strconv.FormatInt(d.opens, 10)},
					":c": &types.AttributeValueMemberN{Value: strconv.FormatInt(d.clicks, 10)},
				},
			},
		})
	}
	return items, nil
}
