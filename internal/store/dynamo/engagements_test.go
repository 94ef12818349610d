package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"pressdesk/internal/store"
)

func testEvent(id, releaseID, eventType string) store.EngagementEvent {
	return store.EngagementEvent{
		ID:             id,
		OrgID:          "org_1",
		ReleaseID:      releaseID,
		RecipientEmail: "reporter@outlet.example",
		EventType:      eventType,
		Timestamp:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestChunkEvents(t *testing.T) {
	events := make([]store.EngagementEvent, 101)
	for i := range events {
		events[i] = testEvent(string(rune('a'+i%26)), "rel_1", "open")
	}
	chunks := chunkEvents(events, 50)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 50 || len(chunks[1]) != 50 || len(chunks[2]) != 1 {
		t.Fatalf("unexpected chunk sizes: %d, %d, %d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}

	if got := chunkEvents(nil, 50); len(got) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(got))
	}
}

func TestDedupeByID(t *testing.T) {
	events := []store.EngagementEvent{
		testEvent("ev1", "rel_1", "open"),
		testEvent("ev2", "rel_1", "click"),
		testEvent("ev1", "rel_1", "open"),
	}
	got := dedupeByID(events)
	if len(got) != 2 {
		t.Fatalf("expected 2 events after dedupe, got %d", len(got))
	}
	if got[0].ID != "ev1" || got[1].ID != "ev2" {
		t.Fatalf("unexpected order after dedupe: %q, %q", got[0].ID, got[1].ID)
	}
}

func TestTransactItemsCoalescesCounters(t *testing.T) {
	events := []store.EngagementEvent{
		testEvent("ev1", "rel_1", "open"),
		testEvent("ev2", "rel_1", "open"),
		testEvent("ev3", "rel_1", "open"),
		testEvent("ev4", "rel_1", "click"),
		testEvent("ev5", "rel_1", "click"),
		testEvent("ev6", "rel_1", "delivered"),
	}
	items, err := transactItems("tbl", events, nil)
	if err != nil {
		t.Fatalf("transactItems: %v", err)
	}
	if len(items) != 7 {
		t.Fatalf("expected 6 puts and 1 update, got %d items", len(items))
	}

	var update *types.Update
	for _, it := range items {
		if it.Update != nil {
			if update != nil {
				t.Fatal("expected a single coalesced update")
			}
			update = it.Update
		}
	}
	if update == nil {
		t.Fatal("missing counter update")
	}
	opens := update.ExpressionAttributeValues[":o"].(*types.AttributeValueMemberN)
	clicks := update.ExpressionAttributeValues[":c"].(*types.AttributeValueMemberN)
	if opens.Value != "3" || clicks.Value != "2" {
		t.Fatalf("expected opens=3 clicks=2, got opens=%s clicks=%s", opens.Value, clicks.Value)
	}
}

func TestTransactItemsSkipsReplayedIncrements(t *testing.T) {
	events := []store.EngagementEvent{
		testEvent("ev1", "rel_1", "open"),
		testEvent("ev2", "rel_1", "click"),
	}
	existing := map[string]struct{}{
		eventRef(events[0]): {},
		eventRef(events[1]): {},
	}
	items, err := transactItems("tbl", events, existing)
	if err != nil {
		t.Fatalf("transactItems: %v", err)
	}
	for _, it := range items {
		if it.Update != nil {
			t.Fatal("replayed events must not stage counter updates")
		}
		if it.Put == nil {
			t.Fatal("replayed events must still stage puts")
		}
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 puts, got %d items", len(items))
	}
}

func TestTransactItemsDeliveredOnlyNoUpdate(t *testing.T) {
	events := []store.EngagementEvent{
		testEvent("ev1", "rel_1", "delivered"),
		testEvent("ev2", "rel_1", "bounce"),
	}
	items, err := transactItems("tbl", events, nil)
	if err != nil {
		t.Fatalf("transactItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected puts only, got %d items", len(items))
	}
}

func TestTransactItemsPerReleaseUpdates(t *testing.T) {
	events := []store.EngagementEvent{
		testEvent("ev1", "rel_1", "open"),
		testEvent("ev2", "rel_2", "click"),
		testEvent("ev3", "rel_1", "click"),
	}
	items, err := transactItems("tbl", events, nil)
	if err != nil {
		t.Fatalf("transactItems: %v", err)
	}
	updates := 0
	for _, it := range items {
		if it.Update != nil {
			updates++
		}
	}
	if updates != 2 {
		t.Fatalf("expected one update per release, got %d", updates)
	}
}

func TestTransactItemsStaysUnderCeiling(t *testing.T) {
	events := make([]store.EngagementEvent, MaxEventsPerChunk)
	for i := range events {
		id := "ev" + string(rune('a'+i/26)) + string(rune('a'+i%26))
		events[i] = testEvent(id, "rel_"+id, "open")
	}
	items, err := transactItems("tbl", events, nil)
	if err != nil {
		t.Fatalf("transactItems: %v", err)
	}
	if len(items) > maxTransactOps {
		t.Fatalf("chunk staged %d ops, ceiling is %d", len(items), maxTransactOps)
	}
	if len(items) != maxTransactOps {
		t.Fatalf("worst case should hit ceiling exactly, got %d", len(items))
	}
}

func TestEventItemOmitsEmptyMetadata(t *testing.T) {
	ev := testEvent("ev1", "rel_1", "open")
	item := newEventItem(ev)
	if item.Metadata != nil {
		t.Fatalf("expected nil metadata, got %v", item.Metadata)
	}
	if item.PK != "ORG#org_1" || item.SK != "EVENT#ev1" {
		t.Fatalf("unexpected keys: %s / %s", item.PK, item.SK)
	}
	if item.Timestamp != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp: %s", item.Timestamp)
	}
}
