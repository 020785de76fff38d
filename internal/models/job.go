package models

// JobStatus is the client-observable state of a backend download job.
//
// Transitions are monotonic: a job moves from running to exactly one
// terminal value and never back.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// String returns the string representation of the status.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal returns true once the job can no longer change state.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// Valid reports whether s is one of the four known statuses.
func (s JobStatus) Valid() bool {
	return s == JobRunning || s.IsTerminal()
}

// ProgressSnapshot is a point-in-time view of a running job's progress.
// It is meaningful only while the job status is running; once a terminal
// status is observed the snapshot is stale and ignored.
type ProgressSnapshot struct {
	Phase      string  `json:"phase"` // "Downloading", "Decrypting", or ""
	Percent    float64 `json:"percent"`
	Speed      string  `json:"speed"`
	Downloaded string  `json:"downloaded"`
	Total      string  `json:"total"`
	ObservedAt int64   `json:"updated_at"` // epoch seconds
}
