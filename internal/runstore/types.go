package runstore

import "time"

// RunRecord represents a stored probe run
type RunRecord struct {
	ID                string
	Model             string
	Prompt            string
	ConversationFiles []string
	Response          string
	ErrorType         string
	Score             *float64
	Confidence        *float64
	ReportPath        string
	CreatedAt         time.Time
}

// Succeeded reports whether the run produced a response
func (r *RunRecord) Succeeded() bool {
	return r.ErrorType == ""
}
