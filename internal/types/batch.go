package types

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus is the lifecycle state of a batch job. Transitions are
// monotonic: Pending → Running → one of the terminal states.
type BatchStatus string

// Batch status constants.
const (
	BatchPending         BatchStatus = "pending"
	BatchRunning         BatchStatus = "running"
	BatchCompleted       BatchStatus = "completed"
	BatchPartiallyFailed BatchStatus = "partially_failed"
	BatchFailed          BatchStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchCompleted, BatchPartiallyFailed, BatchFailed:
		return true
	}
	return false
}

// FailureRecord captures why a single document's pipeline failed. Failures
// are isolated per document; they never abort the surrounding batch.
type FailureRecord struct {
	DocumentID string    `json:"document_id"`
	Cause      string    `json:"cause"`
	FailedAt   time.Time `json:"failed_at"`
}

// DocumentOutcome holds exactly one of a successful result or a failure
// record for a document processed in a batch.
type DocumentOutcome struct {
	Result  *ExtractionResult `json:"result,omitempty"`
	Failure *FailureRecord    `json:"failure,omitempty"`
}

// Failed reports whether the outcome records a failure.
func (o DocumentOutcome) Failed() bool {
	return o.Failure != nil
}

// BatchJob owns an ordered document list for the duration of one batch run.
// Outcomes are keyed by document identity, not position: completion order
// across documents is unspecified.
type BatchJob struct {
	JobID       uuid.UUID                  `json:"job_id"`
	DocumentIDs []string                   `json:"document_ids"`
	Status      BatchStatus                `json:"status"`
	Outcomes    map[string]DocumentOutcome `json:"outcomes"`
	Usage       Usage                      `json:"usage"`
	StartedAt   time.Time                  `json:"started_at"`
	CompletedAt time.Time                  `json:"completed_at,omitempty"`
}

// FailureCount returns how many documents in the job failed.
func (j *BatchJob) FailureCount() int {
	n := 0
	for _, outcome := range j.Outcomes {
		if outcome.Failed() {
			n++
		}
	}
	return n
}
