package sendgrid

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"pressdesk/internal/domain"
	"pressdesk/internal/store"
)

// InboundEvent is one untrusted entry from the provider's event webhook batch.
type InboundEvent struct {
	Event       string  `json:"event"`
	Email       string  `json:"email"`
	Timestamp   float64 `json:"timestamp"`
	SGEventID   string  `json:"sg_event_id"`
	SGMessageID string  `json:"sg_message_id"`

	// Attribution attached by the send side; the provider surfaces custom args
	// either flattened at the top level or nested under custom_args.
	OrgID      string     `json:"orgId"`
	ReleaseID  string     `json:"releaseId"`
	CustomArgs CustomArgs `json:"custom_args"`

	// Diagnostic fields, opportunistically present.
	UserAgent string `json:"useragent"`
	IP        string `json:"ip"`
	URL       string `json:"url"`
	Reason    string `json:"reason"`
}

type CustomArgs struct {
	OrgID     string `json:"orgId"`
	ReleaseID string `json:"releaseId"`
}

var (
	ErrMissingEmail     = errors.New("missing email")
	ErrMissingEventType = errors.New("missing event type")
	ErrUnattributed     = errors.New("no org/release attribution")
	ErrIgnoredEventType = errors.New("ignored event type")
)

// ParseBatch accepts either a JSON array of events or a single event object.
func ParseBatch(body []byte) ([]InboundEvent, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var events []InboundEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, err
		}
		return events, nil
	}
	var ev InboundEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, err
	}
	return []InboundEvent{ev}, nil
}

// Attribution resolves the org/release pair, preferring top-level fields over
// custom_args. Both ids must come from the same level.
func (e InboundEvent) Attribution() (orgID, releaseID string, ok bool) {
	if e.OrgID != "" && e.ReleaseID != "" {
		return e.OrgID, e.ReleaseID, true
	}
	if e.CustomArgs.OrgID != "" && e.CustomArgs.ReleaseID != "" {
		return e.CustomArgs.OrgID, e.CustomArgs.ReleaseID, true
	}
	return "", "", false
}

// MapEventType folds the provider vocabulary onto the canonical one. Both
// "bounce" and "dropped" count as bounces; anything unrecognized is ignored.
func MapEventType(provider string) (domain.EventType, bool) {
	switch provider {
	case "delivered":
		return domain.EventDelivered, true
	case "open":
		return domain.EventOpen, true
	case "click":
		return domain.EventClick, true
	case "bounce", "dropped":
		return domain.EventBounce, true
	case "spamreport":
		return domain.EventSpamReport, true
	case "unsubscribe":
		return domain.EventUnsubscribe, true
	}
	return "", false
}

// timestampFloor is the oldest provider timestamp accepted as-is.
var timestampFloor = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// EventTime validates the provider timestamp (epoch seconds). Outside
// [floor, now+10y] the ingestion time is substituted; a bad clock never
// rejects an event.
func (e InboundEvent) EventTime(now time.Time) time.Time {
	if e.Timestamp <= 0 {
		return now
	}
	t := time.Unix(int64(e.Timestamp), 0).UTC()
	if t.Before(timestampFloor) || t.After(now.AddDate(10, 0, 0)) {
		return now
	}
	return t
}

// Normalize turns an untrusted inbound event into its persistable form, or
// reports why it must be skipped. A skip never fails the batch.
func Normalize(e InboundEvent, now time.Time) (store.EngagementEvent, error) {
	if e.Email == "" {
		return store.EngagementEvent{}, ErrMissingEmail
	}
	if e.Event == "" {
		return store.EngagementEvent{}, ErrMissingEventType
	}
	orgID, releaseID, ok := e.Attribution()
	if !ok {
		return store.EngagementEvent{}, ErrUnattributed
	}
	eventType, ok := MapEventType(e.Event)
	if !ok {
		return store.EngagementEvent{}, ErrIgnoredEventType
	}

	// Only diagnostic fields actually present make it into metadata; the
	// store rejects undefined values, so absent means absent.
	metadata := map[string]string{}
	if e.UserAgent != "" {
		metadata["userAgent"] = e.UserAgent
	}
	if e.IP != "" {
		metadata["ip"] = e.IP
	}
	if e.URL != "" {
		metadata["url"] = e.URL
	}
	if e.Reason != "" {
		metadata["reason"] = e.Reason
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	return store.EngagementEvent{
		ID:             EventID(e),
		OrgID:          orgID,
		ReleaseID:      releaseID,
		RecipientEmail: e.Email,
		EventType:      string(eventType),
		Timestamp:      e.EventTime(now),
		Metadata:       metadata,
	}, nil
}
