package store

import "time"

// EngagementEvent is the persisted, canonical form of one provider engagement
// event. ID is deterministic and content-derived (providers/sendgrid.EventID)
// so a redelivered event lands on the same key.
type EngagementEvent struct {
	ID             string
	OrgID          string
	ReleaseID      string
	RecipientEmail string
	EventType      string
	Timestamp      time.Time
	Metadata       map[string]string
}

type Release struct {
	OrgID     string
	ReleaseID string
	Headline  string
	Body      string
	Opens     int64
	Clicks    int64
}

type SendJob struct {
	ID            string
	OrgID         string
	ReleaseID     string
	OutletListIDs []string
	Status        string
	SentCount     int
	FailedCount   int
	LastError     string
	CreatedAt     time.Time
	StartedAt     time.Time
	CompletedAt   time.Time
}

type SendJobInsert struct {
	ID            string
	OrgID         string
	ReleaseID     string
	OutletListIDs []string
	Status        string
	Now           time.Time
}

type SendJobFinish struct {
	ID          string
	OrgID       string
	Status      string
	SentCount   int
	FailedCount int
	LastError   string
	Now         time.Time
}

type Recipient struct {
	Email  string
	Name   string
	Outlet string
}
