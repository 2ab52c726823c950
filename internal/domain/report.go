package domain

import "time"

// Report is the final result of a batch run. Built once by the aggregator
// after the worker pool has drained; read-only thereafter.
type Report struct {
	Total    int       `json:"total"`
	Written  []Outcome `json:"written"`
	Rejected []Outcome `json:"rejected"`
	Failed   []Outcome `json:"failed"`
}

// Clean reports whether every input line ended up written.
func (r *Report) Clean() bool {
	return len(r.Rejected) == 0 && len(r.Failed) == 0
}

// Run records one completed invocation for the history store.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Report     *Report   `json:"report"`
}
