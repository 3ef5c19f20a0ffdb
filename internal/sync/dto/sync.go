package dto

import (
	"time"

	syncdomain "traction-backend/internal/sync/domain"
)

// SyncRunResponse is the statistics body returned by the sync trigger.
// LastTouch maps "contact:<id>" / "account:<id>" to the timestamp written
// for that entity during the run.
type SyncRunResponse struct {
	RunID       string               `json:"run_id"`
	Provider    string               `json:"provider"`
	WindowStart time.Time            `json:"window_start"`
	WindowEnd   time.Time            `json:"window_end"`
	Status      string               `json:"status"`
	Fetched     int                  `json:"fetched"`
	Matched     int                  `json:"matched"`
	Persisted   int                  `json:"persisted"`
	Skipped     int                  `json:"skipped"`
	Failed      int                  `json:"failed"`
	LastTouch   map[string]time.Time `json:"last_touch"`
}

type SyncRunsResponse struct {
	Runs []syncdomain.SyncRun `json:"runs"`
}
