package domain

import "time"

// Report is a finalized research document assembled from a job's accepted
// drafts.
type Report struct {
	ID             string    `db:"id"              json:"id"`
	Query          string    `db:"query"           json:"query"`
	Content        string    `db:"content"         json:"content"`
	ServerName     string    `db:"server_name"     json:"server_name"`
	ModelName      string    `db:"model_name"      json:"model_name"`
	GenerationSecs float64   `db:"generation_secs" json:"generation_secs"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
}

// Candidate is a discovered {url, title} pair that has not been fetched or
// scored yet. Candidates are ephemeral: they only persist as the seed of a
// Draft.
type Candidate struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}
