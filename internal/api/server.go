// Package api exposes the HTTP interface for the review crawler service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-review-crawler/internal/config"
	"github.com/JakeFAU/realtime-review-crawler/internal/dispatcher"
	"github.com/JakeFAU/realtime-review-crawler/internal/metrics"
	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

const (
	requestTimeout     = 60 * time.Second
	acquisitionTimeout = 5 * time.Minute
	enqueueTimeout     = 5 * time.Second
	maxBodyBytes       = 1 << 20
)

// Server wires HTTP handlers to the cascade, dispatcher and job store.
type Server struct {
	router     chi.Router
	acquirer   review.Acquirer
	jobStore   review.JobStore
	dispatcher *dispatcher.Dispatcher
	idGen      review.IDGenerator
	clock      review.Clock
	cfg        config.Config
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	acquirer review.Acquirer,
	jobStore review.JobStore,
	dispatcher *dispatcher.Dispatcher,
	idGen review.IDGenerator,
	clock review.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		acquirer:   acquirer,
		jobStore:   jobStore,
		dispatcher: dispatcher,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.With(timeoutMiddleware(acquisitionTimeout)).Post("/reviews", s.acquireReviews)
		r.Group(func(r chi.Router) {
			r.Use(timeoutMiddleware(requestTimeout))
			r.Post("/jobs", s.submitJob)
			r.Get("/jobs/{job_id}", s.getJob)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.acquirer == nil {
		s.writeError(w, http.StatusServiceUnavailable, "acquirer not configured")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// acquireReviews runs one acquisition inline and returns the outcome.
func (s *Server) acquireReviews(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	outcome, err := s.acquirer.Acquire(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, review.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

// submitJob queues an acquisition for the worker pool.
func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, _, err := req.Normalize(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobID, err := s.enqueueJob(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusServiceUnavailable
		case errors.Is(err, review.ErrQueueClosed):
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) enqueueJob(ctx context.Context, req review.ExtractionRequest) (string, error) {
	jobID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	job := review.Job{
		ID:        jobID,
		Request:   req,
		Status:    review.JobStatusQueued,
		Submitted: s.clock.Now(),
	}
	if err := s.jobStore.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()
	if err := s.dispatcher.Enqueue(queueCtx, review.QueueItem{JobID: jobID, Request: req}); err != nil {
		if uerr := s.jobStore.UpdateJobStatus(context.WithoutCancel(ctx), jobID, review.JobStatusFailed, err.Error()); uerr != nil {
			s.logger.Error("mark unqueued job failed", zap.String("job_id", jobID), zap.Error(uerr))
		}
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return jobID, nil
}

type reviewRequest struct {
	AppID            string   `json:"app_id"`
	Country          string   `json:"country"`
	Language         string   `json:"language"`
	Limit            int      `json:"limit"`
	Sort             string   `json:"sort"`
	MinRating        float64  `json:"min_rating"`
	MaxRating        *float64 `json:"max_rating"`
	MaxPages         int      `json:"max_pages"`
	InterPageDelayMs int      `json:"inter_page_delay_ms"`
}

func (s *Server) decodeRequest(r *http.Request) (review.ExtractionRequest, error) {
	var body reviewRequest
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return review.ExtractionRequest{}, errors.New("invalid JSON")
	}
	sort := review.Sort(0)
	if body.Sort != "" {
		parsed, err := review.ParseSort(body.Sort)
		if err != nil {
			return review.ExtractionRequest{}, err
		}
		sort = parsed
	}
	req := review.ExtractionRequest{
		AppID:          body.AppID,
		Country:        body.Country,
		Language:       body.Language,
		Limit:          body.Limit,
		Sort:           sort,
		MinRating:      body.MinRating,
		MaxRating:      body.MaxRating,
		MaxPages:       body.MaxPages,
		InterPageDelay: time.Duration(body.InterPageDelayMs) * time.Millisecond,
	}
	req = s.cfg.ApplyDefaults(req)
	if err := s.cfg.CheckLimit(req); err != nil {
		return review.ExtractionRequest{}, err
	}
	return req, nil
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.String("request_id", reqID),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec), zap.String("path", r.URL.Path))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "unauthorized"}, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, payload, s.logger)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg}, s.logger)
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}
