package audit

import "time"

// Surfaces that start export runs.
const (
	SurfaceCLI = "cli"
	SurfaceMCP = "mcp"
)

// Entry represents one export run in the history log.
type Entry struct {
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"ts"`
	PrevHash   string    `json:"prev_hash"`
	RunID      string    `json:"run_id"`
	Surface    string    `json:"surface"`              // "cli" or "mcp"
	BaseURL    string    `json:"base_url"`             // API base the run used
	IssueIDs   []string  `json:"issue_ids"`            // requested, in order
	Succeeded  int       `json:"succeeded"`            // issues written
	Failed     int       `json:"failed"`               // issues recorded as errors
	FailedIDs  []string  `json:"failed_ids,omitempty"` // which issues failed
	OutputPath string    `json:"output_path"`          // absolute report path
	Error      string    `json:"error,omitempty"`      // batch-level error, if the run stopped
	Duration   float64   `json:"duration_ms"`          // wall time in milliseconds
	Hash       string    `json:"hash"`                 // SHA-256 of this entry (with hash field empty)
}

// Run carries the outcome of one export run to Log.
type Run struct {
	Surface    string
	BaseURL    string
	IssueIDs   []string
	Succeeded  int
	Failed     int
	FailedIDs  []string
	OutputPath string
	Err        error
	Duration   time.Duration
}
