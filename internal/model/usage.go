package model

import "time"

// UsageRecord is one append-only audit entry for an authenticated call.
// Records are never updated or deleted.
type UsageRecord struct {
	ID           int64     `json:"id" db:"id"`
	CredentialID string    `json:"credential_id" db:"credential_id"`
	Endpoint     string    `json:"endpoint" db:"endpoint"`
	Method       string    `json:"method" db:"method"`
	Status       int       `json:"status" db:"status"`
	LatencyMs    float64   `json:"latency_ms" db:"latency_ms"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
}

// UsageStats summarizes the usage records of one credential over a
// trailing window of days.
type UsageStats struct {
	TotalRequests int     `json:"total_requests"`
	RequestsToday int     `json:"requests_today"`
	ErrorRequests int     `json:"error_requests"`
	SuccessRate   float64 `json:"success_rate"`
	PeriodDays    int     `json:"period_days"`
}
