package sendgrid

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientSend(t *testing.T) {
	var got mailSendBody
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := &Client{
		APIKey:    "sg-key",
		HTTP:      srv.Client(),
		BaseURL:   srv.URL,
		FromEmail: "news@pressdesk.example",
		FromName:  "Press Desk",
	}
	status, _, err := c.Send(context.Background(), SendRequest{
		ToEmail:   "reporter@outlet.example",
		ToName:    "Reporter",
		Subject:   "Launch",
		HTMLBody:  "<p>hello</p>",
		OrgID:     "org_1",
		ReleaseID: "rel_1",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if status != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
	if auth != "Bearer sg-key" {
		t.Fatalf("unexpected auth header: %q", auth)
	}
	if len(got.Personalizations) != 1 {
		t.Fatalf("expected 1 personalization, got %d", len(got.Personalizations))
	}
	p := got.Personalizations[0]
	if p.To[0].Email != "reporter@outlet.example" {
		t.Fatalf("unexpected recipient: %+v", p.To)
	}
	if p.CustomArgs["orgId"] != "org_1" || p.CustomArgs["releaseId"] != "rel_1" {
		t.Fatalf("attribution not carried: %v", p.CustomArgs)
	}
	if got.From.Email != "news@pressdesk.example" {
		t.Fatalf("unexpected from: %+v", got.From)
	}
}

func TestClientSendErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"does not contain a valid address"}]}`))
	}))
	defer srv.Close()

	c := &Client{HTTP: srv.Client(), BaseURL: srv.URL}
	status, _, err := c.Send(context.Background(), SendRequest{ToEmail: "broken"})
	if err == nil {
		t.Fatal("expected error")
	}
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if err.Error() != "does not contain a valid address" {
		t.Fatalf("provider message not surfaced: %v", err)
	}
}

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		err    error
		status int
		want   bool
	}{
		{nil, 429, true},
		{nil, 408, true},
		{nil, 500, true},
		{nil, 503, true},
		{nil, 400, false},
		{nil, 401, false},
		{errors.New("boom"), 0, false},
		{context.DeadlineExceeded, 0, true},
	}
	for _, c := range cases {
		if got := ShouldRetry(c.err, c.status); got != c.want {
			t.Fatalf("ShouldRetry(%v, %d) = %v, want %v", c.err, c.status, got, c.want)
		}
	}
}

func TestBackoff(t *testing.T) {
	if Backoff(0) != 200*time.Millisecond {
		t.Fatalf("unexpected first backoff: %v", Backoff(0))
	}
	if Backoff(-1) != 200*time.Millisecond {
		t.Fatalf("negative attempt should clamp: %v", Backoff(-1))
	}
	if Backoff(2) != 1400*time.Millisecond {
		t.Fatalf("unexpected third backoff: %v", Backoff(2))
	}
	if Backoff(10) != 1400*time.Millisecond {
		t.Fatalf("large attempt should clamp: %v", Backoff(10))
	}
}
