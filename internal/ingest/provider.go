package ingest

import "github.com/claude/repflow/internal/models"

// Result holds the outcome of an ingest operation.
type Result struct {
	WorkoutsReceived int `json:"workouts_received"`
	WorkoutsApplied  int `json:"workouts_applied"`

	SetsReceived int      `json:"sets_received"`
	SetsApplied  int      `json:"sets_applied"`
	SetsStale    int      `json:"sets_stale"`
	SetsRejected int      `json:"sets_rejected"`
	RejectedIDs  []string `json:"rejected_ids,omitempty"`

	Message string `json:"message,omitempty"`
}

// Push converts the result into the response body clients decode.
func (r *Result) Push() models.PushResult {
	return models.PushResult{
		Applied:  r.WorkoutsApplied > 0 || r.SetsApplied > 0,
		Sets:     r.SetsApplied,
		Stale:    r.SetsStale,
		Rejected: r.SetsRejected,
	}
}
