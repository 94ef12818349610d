package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"pressdesk/internal/providers/sendgrid"
	"pressdesk/internal/queue/sqs"
	"pressdesk/internal/store"
)

type fakeJobStore struct {
	claimed    bool
	claimOK    bool
	release    store.Release
	hasRelease bool
	recipients map[string][]store.Recipient
	finished   []store.SendJobFinish
}

func (f *fakeJobStore) ClaimSendJob(_ context.Context, _, _ string, _ time.Time) (bool, error) {
	f.claimed = true
	return f.claimOK, nil
}

func (f *fakeJobStore) FinishSendJob(_ context.Context, in store.SendJobFinish) error {
	f.finished = append(f.finished, in)
	return nil
}

func (f *fakeJobStore) GetRelease(_ context.Context, _, _ string) (store.Release, bool, error) {
	return f.release, f.hasRelease, nil
}

func (f *fakeJobStore) ListRecipients(_ context.Context, _, listID string) ([]store.Recipient, error) {
	return f.recipients[listID], nil
}

type fakeSender struct {
	requests []sendgrid.SendRequest
	failFor  map[string]error
}

func (f *fakeSender) Send(_ context.Context, req sendgrid.SendRequest) (int, []byte, error) {
	f.requests = append(f.requests, req)
	if err, ok := f.failFor[req.ToEmail]; ok {
		return 400, nil, err
	}
	return 202, nil, nil
}

func newTestProcessor(st *fakeJobStore, snd *fakeSender) *Processor {
	return &Processor{
		Store:   st,
		Sender:  snd,
		Limiter: rate.NewLimiter(rate.Inf, 1),
		Breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "test"}),
	}
}

func testJob() sqs.SendJobMessage {
	return sqs.SendJobMessage{
		OrgID:         "org_1",
		JobID:         "job_1",
		ReleaseID:     "rel_1",
		OutletListIDs: []string{"list_1"},
	}
}

func TestProcessSendsToAllRecipients(t *testing.T) {
	st := &fakeJobStore{
		claimOK:    true,
		hasRelease: true,
		release:    store.Release{Headline: "Launch", Body: "<p>hello</p>"},
		recipients: map[string][]store.Recipient{
			"list_1": {
				{Email: "a@outlet.example", Name: "A"},
				{Email: "b@outlet.example", Name: "B"},
			},
		},
	}
	snd := &fakeSender{}
	p := newTestProcessor(st, snd)

	if err := p.Process(context.Background(), testJob()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(snd.requests) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(snd.requests))
	}
	req := snd.requests[0]
	if req.OrgID != "org_1" || req.ReleaseID != "rel_1" {
		t.Fatalf("attribution not carried: %+v", req)
	}
	if req.Subject != "Launch" {
		t.Fatalf("unexpected subject: %q", req.Subject)
	}
	if len(st.finished) != 1 {
		t.Fatalf("expected 1 finish, got %d", len(st.finished))
	}
	fin := st.finished[0]
	if fin.Status != "completed" || fin.SentCount != 2 || fin.FailedCount != 0 {
		t.Fatalf("unexpected finish: %+v", fin)
	}
}

func TestProcessSkipsUnclaimedJob(t *testing.T) {
	st := &fakeJobStore{claimOK: false}
	snd := &fakeSender{}
	p := newTestProcessor(st, snd)

	if err := p.Process(context.Background(), testJob()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(snd.requests) != 0 {
		t.Fatal("unclaimed job must not send")
	}
	if len(st.finished) != 0 {
		t.Fatal("unclaimed job must not be finished again")
	}
}

func TestProcessReleaseNotFound(t *testing.T) {
	st := &fakeJobStore{claimOK: true, hasRelease: false}
	p := newTestProcessor(st, &fakeSender{})

	if err := p.Process(context.Background(), testJob()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(st.finished) != 1 {
		t.Fatalf("expected 1 finish, got %d", len(st.finished))
	}
	if st.finished[0].Status != "failed" || st.finished[0].LastError != "release_not_found" {
		t.Fatalf("unexpected finish: %+v", st.finished[0])
	}
}

func TestProcessCountsFailures(t *testing.T) {
	st := &fakeJobStore{
		claimOK:    true,
		hasRelease: true,
		release:    store.Release{Headline: "Launch"},
		recipients: map[string][]store.Recipient{
			"list_1": {
				{Email: "good@outlet.example"},
				{Email: "bad@outlet.example"},
			},
		},
	}
	snd := &fakeSender{failFor: map[string]error{
		"bad@outlet.example": errors.New("invalid recipient"),
	}}
	p := newTestProcessor(st, snd)

	if err := p.Process(context.Background(), testJob()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	fin := st.finished[0]
	if fin.Status != "completed" || fin.SentCount != 1 || fin.FailedCount != 1 {
		t.Fatalf("unexpected finish: %+v", fin)
	}
	if fin.LastError == "" {
		t.Fatal("expected last error recorded")
	}
}
