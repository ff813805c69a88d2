package models

import "time"

// HealthProbe is the outcome of one dependency check.
type HealthProbe struct {
	Target     string        `json:"target"`
	Reachable  bool          `json:"reachable"`
	StatusCode int           `json:"status_code,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	Error      string        `json:"error,omitempty"`
	ObservedAt time.Time     `json:"observed_at"`
}

// ReadinessReport aggregates the probes behind GET /ready.
type ReadinessReport struct {
	Ready  bool          `json:"ready"`
	Probes []HealthProbe `json:"probes"`
}
