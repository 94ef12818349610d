package dynamo

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"pressdesk/internal/store"
)

func orgPK(orgID string) string         { return "ORG#" + orgID }
func eventSK(eventID string) string     { return "EVENT#" + eventID }
func releaseSK(releaseID string) string { return "RELEASE#" + releaseID }
func jobSK(jobID string) string         { return "JOB#" + jobID }
func recipientSKPrefix(listID string) string {
	return "LIST#" + listID + "#REC#"
}

type eventItem struct {
	PK             string            `dynamodbav:"PK"`
	SK             string            `dynamodbav:"SK"`
	EventID        string            `dynamodbav:"EventId"`
	OrgID          string            `dynamodbav:"OrgId"`
	ReleaseID      string            `dynamodbav:"ReleaseId"`
	RecipientEmail string            `dynamodbav:"RecipientEmail"`
	EventType      string            `dynamodbav:"EventType"`
	Timestamp      string            `dynamodbav:"Timestamp"`
	Metadata       map[string]string `dynamodbav:"Metadata,omitempty"`
}

func newEventItem(ev store.EngagementEvent) eventItem {
	return eventItem{
		PK:             orgPK(ev.OrgID),
		SK:             eventSK(ev.ID),
		EventID:        ev.ID,
		OrgID:          ev.OrgID,
		ReleaseID:      ev.ReleaseID,
		RecipientEmail: ev.RecipientEmail,
		EventType:      ev.EventType,
		Timestamp:      ev.Timestamp.UTC().Format(time.RFC3339),
		Metadata:       ev.Metadata,
	}
}

type releaseItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	ReleaseID string `dynamodbav:"ReleaseId"`
	OrgID     string `dynamodbav:"OrgId"`
	Headline  string `dynamodbav:"Headline"`
	Body      string `dynamodbav:"Body"`

	// Lowercase on purpose: these attribute names are shared with the
	// engagement commit's ADD expression.
	Opens  int64 `dynamodbav:"opens"`
	Clicks int64 `dynamodbav:"clicks"`
}

type jobItem struct {
	PK            string   `dynamodbav:"PK"`
	SK            string   `dynamodbav:"SK"`
	JobID         string   `dynamodbav:"JobId"`
	OrgID         string   `dynamodbav:"OrgId"`
	ReleaseID     string   `dynamodbav:"ReleaseId"`
	OutletListIDs []string `dynamodbav:"OutletListIds"`
	JobStatus     string   `dynamodbav:"JobStatus"`
	SentCount     int      `dynamodbav:"SentCount"`
	FailedCount   int      `dynamodbav:"FailedCount"`
	LastError     string   `dynamodbav:"LastError,omitempty"`
	CreatedAt     string   `dynamodbav:"CreatedAt"`
	StartedAt     string   `dynamodbav:"StartedAt,omitempty"`
	CompletedAt   string   `dynamodbav:"CompletedAt,omitempty"`
}

type recipientItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	Email  string `dynamodbav:"Email"`
	Name   string `dynamodbav:"Name,omitempty"`
	Outlet string `dynamodbav:"Outlet,omitempty"`
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}
