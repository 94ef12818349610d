package domain

import "errors"

// EventType is the canonical engagement vocabulary. The provider's own labels
// are folded onto these by the webhook; anything outside this set is dropped.
type EventType string

const (
	EventDelivered   EventType = "delivered"
	EventOpen        EventType = "open"
	EventClick       EventType = "click"
	EventBounce      EventType = "bounce"
	EventSpamReport  EventType = "spam_report"
	EventUnsubscribe EventType = "unsubscribe"
)

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

type SendReleaseRequest struct {
	OutletListIDs []string `json:"outletListIds"`
}

func (r SendReleaseRequest) Validate() error {
	if len(r.OutletListIDs) == 0 {
		return ErrMissingFields
	}
	for _, id := range r.OutletListIDs {
		if id == "" {
			return ErrMissingFields
		}
	}
	return nil
}

var ErrMissingFields = errors.New("missing required fields")

type CreateJobResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}
