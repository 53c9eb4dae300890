package domain

import "time"

// Draft QA status values.
const (
	QAStatusOK     = "ok"
	QAStatusFailed = "failed"
)

// Draft is the persisted record of one processed candidate, accepted or
// rejected. Drafts are append-only: once written they are never mutated, so a
// job's drafts form an audit trail of every candidate it examined.
type Draft struct {
	ID           string    `db:"id"            json:"id"`
	JobID        string    `db:"job_id"        json:"job_id"`
	Title        string    `db:"title"         json:"title"`
	Summary      string    `db:"summary"       json:"summary"`
	IncidentDate string    `db:"incident_date" json:"incident_date"`
	Targets      string    `db:"targets"       json:"targets"`
	Method       string    `db:"method"        json:"method"`
	ExploitUsed  string    `db:"exploit_used"  json:"exploit_used"`
	Relevance    string    `db:"relevance"     json:"relevance"`
	SourceURL    string    `db:"source_url"    json:"source_url"`
	CanonicalURL string    `db:"canonical_url" json:"canonical_url"`
	TitleKey     string    `db:"title_key"     json:"title_key"`
	ContentHash  string    `db:"content_hash"  json:"content_hash"`
	Snippet      string    `db:"snippet"       json:"snippet"`
	QAStatus     string    `db:"qa_status"     json:"qa_status"`
	QAMessage    string    `db:"qa_message"    json:"qa_message"`
	LinkOK       bool      `db:"link_ok"       json:"link_ok"`
	IsDuplicate  bool      `db:"is_duplicate"  json:"is_duplicate"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}

// Accepted reports whether the draft passed acceptance gating.
func (d *Draft) Accepted() bool {
	return d.QAStatus == QAStatusOK
}

// LogEntry is one append-only audit log line belonging to a job.
type LogEntry struct {
	ID        int64     `db:"id"        json:"id"`
	JobID     string    `db:"job_id"    json:"job_id"`
	Timestamp time.Time `db:"ts"        json:"timestamp"`
	Level     string    `db:"level"     json:"level"`
	Message   string    `db:"message"   json:"message"`
}
