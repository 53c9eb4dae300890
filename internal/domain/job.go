// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// Job status values. A job moves pending -> running -> finalizing and ends in
// finalized, failed, or canceled.
const (
	JobStatusPending    = "pending"
	JobStatusRunning    = "running"
	JobStatusFinalizing = "finalizing"
	JobStatusFinalized  = "finalized"
	JobStatusFailed     = "failed"
	JobStatusCanceled   = "canceled"
)

// Job represents one discovery run.
type Job struct {
	ID            string     `db:"id"             json:"id"`
	Query         string     `db:"query"          json:"query"`
	ServerType    string     `db:"server_type"    json:"server_type"`
	ServerName    string     `db:"server_name"    json:"server_name"`
	ModelName     string     `db:"model_name"     json:"model_name"`
	TargetCount   int        `db:"target_count"   json:"target_count"`
	Status        string     `db:"status"         json:"status"`
	AcceptedCount int        `db:"accepted_count" json:"accepted_count"`
	DraftsCount   int        `db:"drafts_count"   json:"drafts_count"`
	ErrorsCount   int        `db:"errors_count"   json:"errors_count"`
	ReportID      *string    `db:"report_id"      json:"report_id,omitempty"`
	Config        JSONBMap   `db:"config"         json:"config,omitempty"`
	CreatedAt     time.Time  `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"     json:"updated_at"`
	StartedAt     *time.Time `db:"started_at"     json:"started_at,omitempty"`
	FinishedAt    *time.Time `db:"finished_at"    json:"finished_at,omitempty"`
}

// IsTerminal reports whether the job has reached a terminal status.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusFinalized ||
		j.Status == JobStatusFailed ||
		j.Status == JobStatusCanceled
}

// TargetReached reports whether the job has accepted enough drafts.
func (j *Job) TargetReached() bool {
	return j.AcceptedCount >= j.TargetCount
}
