package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"pressdesk/internal/domain"
	"pressdesk/internal/service"
	"pressdesk/internal/util"
)

type API struct {
	Svc   *service.ReleaseService
	IDGen func() string
}

func (a *API) Register(mux *mux.Router) {
	mux.HandleFunc("/v1/orgs/{orgId}/releases/{releaseId}/send", a.handleSendRelease).Methods(http.MethodPost)
	mux.HandleFunc("/v1/orgs/{orgId}/jobs/{jobId}", a.handleGetJob).Methods(http.MethodGet)
	mux.HandleFunc("/v1/orgs/{orgId}/releases/{releaseId}/stats", a.handleGetStats).Methods(http.MethodGet)
}

func (a *API) handleSendRelease(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orgID, releaseID := vars["orgId"], vars["releaseId"]

	var req domain.SendReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := a.Svc.CreateSendJob(r.Context(), orgID, releaseID, req, a.IDGen(), util.NowUTC())
	if err != nil {
		if errors.Is(err, service.ErrReleaseNotFound) {
			http.Error(w, ErrNotFound, http.StatusNotFound)
			return
		}
		slog.Error("create send job failed",
			"err", err,
			"org_id", orgID,
			"release_id", releaseID,
		)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(resp)
}

type jobResponse struct {
	JobID         string    `json:"jobId"`
	ReleaseID     string    `json:"releaseId"`
	OutletListIDs []string  `json:"outletListIds"`
	Status        string    `json:"status"`
	SentCount     int       `json:"sentCount"`
	FailedCount   int       `json:"failedCount"`
	LastError     string    `json:"lastError,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	StartedAt     time.Time `json:"startedAt,omitzero"`
	CompletedAt   time.Time `json:"completedAt,omitzero"`
}

func (a *API) handleGetJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orgID, jobID := vars["orgId"], vars["jobId"]

	job, found, err := a.Svc.GetSendJob(r.Context(), orgID, jobID)
	if err != nil {
		slog.Error("get send job failed", "err", err, "org_id", orgID, "job_id", jobID)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if !found {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jobResponse{
		JobID:         job.ID,
		ReleaseID:     job.ReleaseID,
		OutletListIDs: job.OutletListIDs,
		Status:        job.Status,
		SentCount:     job.SentCount,
		FailedCount:   job.FailedCount,
		LastError:     job.LastError,
		CreatedAt:     job.CreatedAt,
		StartedAt:     job.StartedAt,
		CompletedAt:   job.CompletedAt,
	})
}

type statsResponse struct {
	ReleaseID string `json:"releaseId"`
	Opens     int64  `json:"opens"`
	Clicks    int64  `json:"clicks"`
}

func (a *API) handleGetStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orgID, releaseID := vars["orgId"], vars["releaseId"]

	release, found, err := a.Svc.GetReleaseStats(r.Context(), orgID, releaseID)
	if err != nil {
		slog.Error("get release stats failed", "err", err, "org_id", orgID, "release_id", releaseID)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if !found {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statsResponse{
		ReleaseID: releaseID,
		Opens:     release.Opens,
		Clicks:    release.Clicks,
	})
}
