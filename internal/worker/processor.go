package worker

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"pressdesk/internal/domain"
	"pressdesk/internal/observability"
	"pressdesk/internal/providers/sendgrid"
	"pressdesk/internal/queue/sqs"
	"pressdesk/internal/store"
)

const (
	sendAttempts    = 3
	rateWaitTimeout = 2 * time.Second
	sendCallTimeout = 8 * time.Second
)

type Store interface {
	ClaimSendJob(ctx context.Context, orgID, jobID string, now time.Time) (bool, error)
	FinishSendJob(ctx context.Context, in store.SendJobFinish) error
	GetRelease(ctx context.Context, orgID, releaseID string) (store.Release, bool, error)
	ListRecipients(ctx context.Context, orgID, listID string) ([]store.Recipient, error)
}

type Sender interface {
	Send(ctx context.Context, req sendgrid.SendRequest) (int, []byte, error)
}

// Processor fans one send job out to every recipient of its outlet lists.
// Rate limiting and the circuit breaker protect the provider; a job always
// reaches a terminal status even when individual sends fail.
type Processor struct {
	Store   Store
	Sender  Sender
	Limiter *rate.Limiter
	Breaker *gobreaker.CircuitBreaker
}

func (p *Processor) Process(ctx context.Context, job sqs.SendJobMessage) error {
	log := slog.With("jobId", job.JobID, "orgId", job.OrgID, "releaseId", job.ReleaseID)

	claimed, err := p.Store.ClaimSendJob(ctx, job.OrgID, job.JobID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !claimed {
		log.Info("job already claimed, skipping")
		return nil
	}

	release, found, err := p.Store.GetRelease(ctx, job.OrgID, job.ReleaseID)
	if err != nil {
		return err
	}
	if !found {
		log.Warn("release missing for claimed job")
		return p.Store.FinishSendJob(ctx, store.SendJobFinish{
			ID:        job.JobID,
			OrgID:     job.OrgID,
			Status:    string(domain.JobFailed),
			LastError: "release_not_found",
			Now:       time.Now().UTC(),
		})
	}

	var sent, failed int
	var lastErr string
	for _, listID := range job.OutletListIDs {
		recipients, err := p.Store.ListRecipients(ctx, job.OrgID, listID)
		if err != nil {
			return err
		}
		for _, r := range recipients {
			if err := p.sendOne(ctx, job, release, r); err != nil {
				failed++
				lastErr = err.Error()
				log.Warn("send failed", "recipient", r.Email, "error", err)
				continue
			}
			sent++
		}
	}

	status := domain.JobCompleted
	if sent == 0 && failed > 0 {
		status = domain.JobFailed
	}
	log.Info("job finished", "status", string(status), "sent", sent, "failed", failed)
	return p.Store.FinishSendJob(ctx, store.SendJobFinish{
		ID:          job.JobID,
		OrgID:       job.OrgID,
		Status:      string(status),
		SentCount:   sent,
		FailedCount: failed,
		LastError:   lastErr,
		Now:         time.Now().UTC(),
	})
}

func (p *Processor) sendOne(ctx context.Context, job sqs.SendJobMessage, release store.Release, r store.Recipient) error {
	req := sendgrid.SendRequest{
		ToEmail:   r.Email,
		ToName:    r.Name,
		Subject:   release.Headline,
		HTMLBody:  release.Body,
		OrgID:     job.OrgID,
		ReleaseID: job.ReleaseID,
	}

	var lastErr error
	for attempt := 0; attempt < sendAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(sendgrid.Backoff(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		waitCtx, cancel := context.WithTimeout(ctx, rateWaitTimeout)
		err := p.Limiter.Wait(waitCtx)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		status, err := p.executeSend(ctx, req)
		observability.MailSend.WithLabelValues(result(err), strconv.Itoa(status)).Inc()
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return lastErr
		}
		if !sendgrid.ShouldRetry(err, status) {
			return lastErr
		}
	}
	return lastErr
}

func (p *Processor) executeSend(ctx context.Context, req sendgrid.SendRequest) (int, error) {
	start := time.Now()
	out, err := p.Breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, sendCallTimeout)
		defer cancel()
		status, _, err := p.Sender.Send(callCtx, req)
		if err != nil {
			return status, &sendCallError{status: status, err: err}
		}
		return status, nil
	})
	observability.MailLatency.Observe(time.Since(start).Seconds())
	status, _ := out.(int)
	if err != nil {
		var sce *sendCallError
		if errors.As(err, &sce) {
			return sce.status, sce.err
		}
		return status, err
	}
	return status, nil
}

// sendCallError carries the provider HTTP status through the breaker, which
// only passes an error back out.
type sendCallError struct {
	status int
	err    error
}

func (e *sendCallError) Error() string { return e.err.Error() }
func (e *sendCallError) Unwrap() error { return e.err }

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
