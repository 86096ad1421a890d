package models

import "time"

// HealthStats summarises store contents for the health endpoint.
type HealthStats struct {
	TotalCases     int `db:"total_cases" json:"total_cases"`
	TotalDocuments int `db:"total_documents" json:"total_documents"`
	TotalJobs      int `db:"total_jobs" json:"total_jobs"`
	ActiveLeases   int `db:"active_leases" json:"active_leases"`
}

// SystemStats breaks entity populations down by status.
type SystemStats struct {
	CaseStatuses       map[string]int `json:"case_statuses"`
	JobStatuses        map[string]int `json:"job_statuses"`
	ExtractionStatuses map[string]int `json:"extraction_statuses"`
	ActiveLeases       int            `json:"active_leases"`
	GeneratedAt        time.Time      `json:"timestamp"`
}

// StatusCount is one row of a GROUP BY status aggregate.
type StatusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}
