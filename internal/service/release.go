package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pressdesk/internal/domain"
	"pressdesk/internal/observability"
	"pressdesk/internal/store"
)

var ErrReleaseNotFound = errors.New("release not found")

// Store is the persistence surface the release service needs.
type Store interface {
	GetRelease(ctx context.Context, orgID, releaseID string) (store.Release, bool, error)
	InsertSendJob(ctx context.Context, in store.SendJobInsert) error
	FinishSendJob(ctx context.Context, in store.SendJobFinish) error
	GetSendJob(ctx context.Context, orgID, jobID string) (store.SendJob, bool, error)
}

type Queue interface {
	EnqueueSendJob(ctx context.Context, orgID, jobID, releaseID string, outletListIDs []string) error
}

type ReleaseService struct {
	Store Store
	Queue Queue
}

// CreateSendJob records a queued job and hands it to the queue. If the
// enqueue fails the job is marked failed so it never sits queued forever
// with no message behind it.
func (s *ReleaseService) CreateSendJob(ctx context.Context, orgID, releaseID string, req domain.SendReleaseRequest, jobID string, now time.Time) (domain.CreateJobResponse, error) {
	_, found, err := s.Store.GetRelease(ctx, orgID, releaseID)
	if err != nil {
		return domain.CreateJobResponse{}, fmt.Errorf("loading release: %w", err)
	}
	if !found {
		return domain.CreateJobResponse{}, ErrReleaseNotFound
	}

	if err := s.Store.InsertSendJob(ctx, store.SendJobInsert{
		ID:            jobID,
		OrgID:         orgID,
		ReleaseID:     releaseID,
		OutletListIDs: req.OutletListIDs,
		Status:        string(domain.JobQueued),
		Now:           now,
	}); err != nil {
		return domain.CreateJobResponse{}, fmt.Errorf("inserting send job: %w", err)
	}

	if err := s.Queue.EnqueueSendJob(ctx, orgID, jobID, releaseID, req.OutletListIDs); err != nil {
		observability.Enqueues.WithLabelValues("error").Inc()
		if ferr := s.Store.FinishSendJob(ctx, store.SendJobFinish{
			ID:        jobID,
			OrgID:     orgID,
			Status:    string(domain.JobFailed),
			LastError: "enqueue_failed",
			Now:       time.Now().UTC(),
		}); ferr != nil {
			return domain.CreateJobResponse{}, errors.Join(err, ferr)
		}
		return domain.CreateJobResponse{}, fmt.Errorf("enqueuing send job: %w", err)
	}
	observability.Enqueues.WithLabelValues("ok").Inc()

	return domain.CreateJobResponse{JobID: jobID, Status: string(domain.JobQueued)}, nil
}

func (s *ReleaseService) GetSendJob(ctx context.Context, orgID, jobID string) (store.SendJob, bool, error) {
	return s.Store.GetSendJob(ctx, orgID, jobID)
}

func (s *ReleaseService) GetReleaseStats(ctx context.Context, orgID, releaseID string) (store.Release, bool, error) {
	return s.Store.GetRelease(ctx, orgID, releaseID)
}
