package models

import "time"

// ClientMetrics is a point-in-time summary of client activity.
type ClientMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	RequestFailures          uint64    `json:"request_failures"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	TransitionsTotal         uint64    `json:"transitions_total"`
	ReconcileRuns            uint64    `json:"reconcile_runs"`
	Authenticated            bool      `json:"authenticated"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
