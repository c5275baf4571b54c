package model

import "time"

// Status is the terminal state of one unit within one run.
type Status string

const (
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
	StatusErrored  Status = "errored"
	StatusTimedOut Status = "timed_out"
)

// FailureDetail carries everything a bug report needs for a failing unit.
// Summary, Expected and Actual are mandatory for Failed/Errored outcomes;
// a report rendered without them is itself a defect.
type FailureDetail struct {
	// One-line summary of what was checked
	Summary string `json:"summary"`
	// Expected value, rendered
	Expected string `json:"expected"`
	// Actual value, rendered
	Actual string `json:"actual"`
	// Free-form context attached by the unit or the scheduler
	Context string `json:"context,omitempty"`
}

// Outcome is the recorded result of executing one unit within one run.
// Exactly one Outcome exists per requested unit; it is immutable once the
// worker finishes the unit.
type Outcome struct {
	// Name of the unit this outcome belongs to
	Unit string `json:"unit"`
	// Topic of the declaring suite
	Topic string `json:"topic,omitempty"`
	Status Status `json:"status"`
	// Wall-clock execution time of the unit
	Duration time.Duration `json:"duration"`
	// Failure detail, set for Failed/Errored/TimedOut outcomes
	Failure *FailureDetail `json:"failure,omitempty"`
	// Reason the unit was skipped, set only for Skipped outcomes
	SkipReason string `json:"skip_reason,omitempty"`
	// Rendered form of the object the unit returned (standalone inspection)
	Value string `json:"value,omitempty"`
	// ID of the coverage sample produced while executing this unit
	SampleID string `json:"sample_id,omitempty"`
}
