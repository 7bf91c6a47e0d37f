package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aleister1102/pagewatch/internal/common"
	"github.com/aleister1102/pagewatch/internal/models"
)

type createJobRequest struct {
	Name                 string `json:"name"`
	URL                  string `json:"url"`
	CheckIntervalSeconds int    `json:"check_interval_seconds"`
}

type startJobRequest struct {
	APIKey string `json:"api_key"`
}

type jobResponse struct {
	Success bool       `json:"success"`
	Job     models.Job `json:"job"`
}

type jobListResponse struct {
	Success bool         `json:"success"`
	Jobs    []models.Job `json:"jobs"`
	Count   int          `json:"count"`
}

type resultsResponse struct {
	Success bool                  `json:"success"`
	JobID   string                `json:"job_id"`
	Results []models.ChangeRecord `json:"results"`
	Count   int                   `json:"count"`
}

type statsResponse struct {
	Success bool            `json:"success"`
	Stats   models.JobStats `json:"stats"`
}

type statusResponse struct {
	Success bool                `json:"success"`
	Status  models.SystemStatus `json:"status"`
}

type healthResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, healthResponse{Success: true, Status: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, statusResponse{Success: true, Status: s.engine.SystemStatus()})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.engine.ListJobs()
	s.respondJSON(w, http.StatusOK, jobListResponse{Success: true, Jobs: jobs, Count: len(jobs)})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, common.NewValidationError("body", "", "invalid JSON request body"))
		return
	}

	job, err := s.engine.CreateJob(req.Name, req.URL, time.Duration(req.CheckIntervalSeconds)*time.Second)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, jobResponse{Success: true, Job: job})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.engine.GetJob(chi.URLParam(r, "jobID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, jobResponse{Success: true, Job: job})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if err := s.engine.DeleteJob(jobID); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, deleteResponse{Success: true, JobID: jobID})
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req startJobRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, common.NewValidationError("body", "", "invalid JSON request body"))
			return
		}
	}

	job, err := s.engine.StartJob(chi.URLParam(r, "jobID"), req.APIKey)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, jobResponse{Success: true, Job: job})
}

func (s *Server) handleStopJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.engine.StopJob(chi.URLParam(r, "jobID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, jobResponse{Success: true, Job: job})
}

func (s *Server) handlePauseJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.engine.PauseJob(chi.URLParam(r, "jobID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, jobResponse{Success: true, Job: job})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.respondError(w, common.NewValidationError("limit", raw, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	records, err := s.engine.Results(jobID, limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if records == nil {
		records = []models.ChangeRecord{}
	}
	s.respondJSON(w, http.StatusOK, resultsResponse{Success: true, JobID: jobID, Results: records, Count: len(records)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	jobStats, err := s.engine.Stats(chi.URLParam(r, "jobID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, statsResponse{Success: true, Stats: jobStats})
}
