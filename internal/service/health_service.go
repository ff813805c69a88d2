package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/course-console/internal/models"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthService probes the backend API and the session store for readiness.
type HealthService struct {
	backendURL string
	sessions   pinger
	metrics    *MetricsService
	client     *http.Client
}

// NewHealthService constructs a HealthService. An empty healthURL probes the
// backend base URL itself.
func NewHealthService(baseURL, healthURL string, timeout time.Duration, sessions pinger, metrics *MetricsService) *HealthService {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	target := strings.TrimSpace(healthURL)
	if target == "" {
		target = strings.TrimRight(baseURL, "/")
	}
	return &HealthService{
		backendURL: target,
		sessions:   sessions,
		metrics:    metrics,
		client:     &http.Client{Timeout: timeout},
	}
}

// Readiness runs every probe.
func (s *HealthService) Readiness(ctx context.Context) models.ReadinessReport {
	backend, _ := s.PingBackend(ctx)
	store := s.pingSessions(ctx)
	return models.ReadinessReport{
		Ready:  backend.Reachable && store.Reachable,
		Probes: []models.HealthProbe{backend, store},
	}
}

// PingBackend issues a GET against the backend. Any status below 500 counts
// as reachable since the API root may require authentication.
func (s *HealthService) PingBackend(ctx context.Context) (models.HealthProbe, error) {
	result := models.HealthProbe{Target: "backend", ObservedAt: time.Now().UTC()}

	if s.backendURL == "" {
		err := errors.New("backend URL not configured")
		result.Error = err.Error()
		return result, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.backendURL, nil)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	duration := time.Since(start)
	result.Duration = duration

	statusCode := http.StatusServiceUnavailable
	if err != nil {
		result.Error = err.Error()
	} else {
		defer resp.Body.Close()
		statusCode = resp.StatusCode
		result.StatusCode = resp.StatusCode
		if resp.StatusCode >= http.StatusInternalServerError {
			result.Error = fmt.Sprintf("received status %d", resp.StatusCode)
			err = fmt.Errorf("backend health check failed: %s", result.Error)
		}
		result.Reachable = resp.StatusCode < http.StatusInternalServerError
	}

	s.metrics.ObserveBackendCall(http.MethodGet, "health", statusCode, duration)
	return result, err
}

func (s *HealthService) pingSessions(ctx context.Context) models.HealthProbe {
	result := models.HealthProbe{Target: "session_store", ObservedAt: time.Now().UTC(), Reachable: true}
	if s.sessions == nil {
		return result
	}
	start := time.Now()
	err := s.sessions.Ping(ctx)
	result.Duration = time.Since(start)
	if err != nil {
		result.Reachable = false
		result.Error = err.Error()
	}
	return result
}
