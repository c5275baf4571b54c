package model

import "time"

// Mode selects how a run was started and which defaults apply.
type Mode string

const (
	// ModeStandalone runs one (or a few) explicitly named units on a single
	// worker with verbose output and plotting enabled. Interactive inspection.
	ModeStandalone Mode = "standalone"
	// ModeDiscovery runs every unit matching a filter, quiet, in parallel.
	ModeDiscovery Mode = "discovery"
	// ModeAutomated is discovery plus a wall-clock budget for the whole run.
	ModeAutomated Mode = "automated"
)

// Run describes one execution of a chosen set of units under one mode.
// The mode and toggles are fixed before the first unit starts.
type Run struct {
	// Unique ID for this run (16 random bytes, hex encoded)
	ID string `json:"id"`
	// Mode of execution
	Mode Mode `json:"mode"`
	// Number of parallel workers
	Workers int `json:"workers"`
	// Whether verbose output (and artifact pinning) was enabled
	Verbose bool `json:"verbose"`
	// Whether units were allowed to produce plots
	Plotting bool `json:"plotting"`
	// Whether structural violations and the coverage gate are fatal
	Strict bool `json:"strict"`
	// Wall-clock budget for the whole run (automated mode only)
	Budget time.Duration `json:"budget,omitempty"`
	// Timestamp when the run started
	Timestamp time.Time `json:"timestamp"`
	// Duration of the whole run
	Duration time.Duration `json:"duration"`
	// Command-line arguments (including command name)
	Args []string `json:"args,omitempty"`
	// Working directory where the run was started (relative to repo root)
	WorkDir string `json:"workdir,omitempty"`
	// Exit code of the run
	ExitCode int `json:"exit_code"`
	// Git information, if available
	Git *Git `json:"git,omitempty"`
}

// Git contains git repository information captured at run time.
type Git struct {
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// RunReport is the run-level result consumed by list/view and written to the
// history directory as report.json.
type RunReport struct {
	Run Run `json:"run"`
	// Counts per outcome status
	Counts map[Status]int `json:"counts"`
	// Outcomes in registry order, one per requested unit
	Outcomes []Outcome `json:"outcomes"`
	// Merged coverage across all workers
	Coverage *CoverageReport `json:"coverage,omitempty"`
	// Structural violations found during discovery
	Violations []string `json:"violations,omitempty"`
	// True when the automated-mode budget was exhausted
	BudgetExceeded bool `json:"budget_exceeded,omitempty"`
	// True when the merged branch ratio fell below the configured minimum
	GateFailed bool `json:"gate_failed,omitempty"`
	// Artifacts left in the store by this run
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Failed reports whether the run as a whole failed: any unit outcome that is
// not Passed/Skipped, an exhausted budget, or (under strict) a failed
// coverage gate or structural violation.
func (r *RunReport) Failed() bool {
	if r.BudgetExceeded {
		return true
	}
	if r.Counts[StatusFailed] > 0 || r.Counts[StatusErrored] > 0 || r.Counts[StatusTimedOut] > 0 {
		return true
	}
	if r.Run.Strict && (r.GateFailed || len(r.Violations) > 0) {
		return true
	}
	return false
}
