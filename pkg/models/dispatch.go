package models

import "time"

// Outcome classifies how a dispatched request settled.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeBusiness    Outcome = "business_error"
	OutcomeAuthExpired Outcome = "auth_expired"
	OutcomeNetwork     Outcome = "network_error"
)

// DispatchRecord tracks a single network call made by the orchestrator.
// Coalesced waiters share one record.
type DispatchRecord struct {
	ID        string    `json:"id"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Outcome   Outcome   `json:"outcome"`
	Code      int       `json:"code"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// DispatchSummary aggregates dispatches per method, path and outcome.
type DispatchSummary struct {
	Method       string  `json:"method"`
	Path         string  `json:"path"`
	Outcome      Outcome `json:"outcome"`
	RequestCount int     `json:"request_count"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}
