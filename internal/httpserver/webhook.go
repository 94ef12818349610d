package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"pressdesk/internal/observability"
	"pressdesk/internal/providers/sendgrid"
	"pressdesk/internal/store"
)

type EngagementStore interface {
	CommitEngagements(ctx context.Context, events []store.EngagementEvent) (int, error)
}

// Webhook receives engagement event batches from the email provider. Each
// event is normalized independently; one bad event never rejects the batch,
// since the provider would redeliver everything on a non-2xx.
type Webhook struct {
	Store    EngagementStore
	Verifier *sendgrid.Verifier
}

func (w *Webhook) Register(mux *mux.Router) {
	// Method checked in the handler so non-POST gets 405 rather than the
	// router's 404.
	mux.HandleFunc("/v1/webhooks/sendgrid/events", w.handleEvents)
}

func (w *Webhook) handleEvents(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		observability.WebhookBatches.WithLabelValues("bad_body").Inc()
		http.Error(rw, ErrBadBody, http.StatusBadRequest)
		return
	}

	signature := r.Header.Get(sendgrid.SignatureHeader)
	timestamp := r.Header.Get(sendgrid.TimestampHeader)
	if !w.Verifier.Verify(body, signature, timestamp) {
		observability.WebhookBatches.WithLabelValues("invalid_signature").Inc()
		http.Error(rw, ErrInvalidSignature, http.StatusForbidden)
		return
	}
	if w.Verifier.Mode == sendgrid.ModeWarnAndAllow {
		slog.Warn("webhook signature not verified, no public key configured")
	}

	inbound, err := sendgrid.ParseBatch(body)
	if err != nil {
		observability.WebhookBatches.WithLabelValues("bad_payload").Inc()
		http.Error(rw, ErrInvalidJSON, http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	events := make([]store.EngagementEvent, 0, len(inbound))
	for _, e := range inbound {
		ev, err := sendgrid.Normalize(e, now)
		if err != nil {
			w.logSkip(e, err)
			continue
		}
		observability.WebhookEvents.WithLabelValues(ev.EventType).Inc()
		events = append(events, ev)
	}

	persisted := 0
	if len(events) > 0 {
		persisted, err = w.Store.CommitEngagements(r.Context(), events)
		if err != nil {
			slog.Error("webhook commit failed", "err", err, "events", len(events), "persisted", persisted)
			observability.WebhookBatches.WithLabelValues("persist_failed").Inc()
			http.Error(rw, ErrDependency, http.StatusInternalServerError)
			return
		}
	}

	observability.WebhookBatches.WithLabelValues("ok").Inc()
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(map[string]int{"processed": persisted})
}

func (w *Webhook) logSkip(e sendgrid.InboundEvent, err error) {
	switch {
	case errors.Is(err, sendgrid.ErrIgnoredEventType):
		observability.WebhookSkips.WithLabelValues("ignored_event_type").Inc()
		slog.Debug("skipping unmapped event type", "event", e.Event, "sg_event_id", e.SGEventID)
	case errors.Is(err, sendgrid.ErrUnattributed):
		observability.WebhookSkips.WithLabelValues("unattributed").Inc()
		slog.Warn("skipping unattributed event", "event", e.Event, "sg_event_id", e.SGEventID)
	case errors.Is(err, sendgrid.ErrMissingEmail):
		observability.WebhookSkips.WithLabelValues("missing_email").Inc()
		slog.Warn("skipping event without recipient", "event", e.Event, "sg_event_id", e.SGEventID)
	default:
		observability.WebhookSkips.WithLabelValues("invalid").Inc()
		slog.Warn("skipping invalid event", "event", e.Event, "sg_event_id", e.SGEventID, "err", err)
	}
}
