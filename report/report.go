// Package report turns per-unit outcomes into structured, bug-report-ready
// failure messages and a run-level summary. Every failing outcome is
// rendered with the unit name, what was checked, the expected value, the
// actual value and any attached context; a report missing those for a
// failing unit is itself a defect.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/suiterun/suiterun/model"
)

// Exit codes distinguishing why a run failed.
const (
	ExitOK = 0
	// ExitUnitFailure: at least one unit failed, errored or timed out.
	ExitUnitFailure = 1
	// ExitInfraFailure: coverage gate or structural violations under
	// strict, or an infrastructure fault.
	ExitInfraFailure = 2
	// ExitBudgetExceeded: the automated-mode wall-clock budget ran out.
	ExitBudgetExceeded = 3
)

// Build assembles the run-level report from per-unit outcomes and the
// merged coverage. Outcomes are expected in registry order and are kept
// that way.
func Build(run model.Run, outcomes []model.Outcome, cov *model.CoverageReport, violations []string, budgetExceeded bool, covMinimum float64) *model.RunReport {
	counts := make(map[model.Status]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}

	rep := &model.RunReport{
		Run:            run,
		Counts:         counts,
		Outcomes:       outcomes,
		Coverage:       cov,
		Violations:     violations,
		BudgetExceeded: budgetExceeded,
	}
	if cov != nil && cov.BranchRatio < covMinimum {
		rep.GateFailed = true
	}
	rep.Run.ExitCode = ExitCode(rep)
	return rep
}

// ExitCode maps a report to the process exit code. Budget exhaustion wins
// over unit failures, which win over gate/structural failures.
func ExitCode(rep *model.RunReport) int {
	if rep.BudgetExceeded {
		return ExitBudgetExceeded
	}
	if rep.Counts[model.StatusFailed] > 0 || rep.Counts[model.StatusErrored] > 0 || rep.Counts[model.StatusTimedOut] > 0 {
		return ExitUnitFailure
	}
	if rep.Run.Strict && (rep.GateFailed || len(rep.Violations) > 0) {
		return ExitInfraFailure
	}
	return ExitOK
}

// Render writes the human-readable report. The per-unit failure block and
// the suite summary are the invocation surface's primary output.
func Render(w io.Writer, rep *model.RunReport, covMinimum, covTarget float64) {
	shortID := rep.Run.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	fmt.Fprintf(w, "=== suiterun: run %s (%s) ===\n\n", shortID, rep.Run.Mode)

	for _, o := range rep.Outcomes {
		renderOutcome(w, rep.Run, o)
	}

	fmt.Fprintf(w, "--- summary ---\n")
	fmt.Fprintf(w, "passed %d  failed %d  skipped %d  errored %d  timed_out %d\n",
		rep.Counts[model.StatusPassed],
		rep.Counts[model.StatusFailed],
		rep.Counts[model.StatusSkipped],
		rep.Counts[model.StatusErrored],
		rep.Counts[model.StatusTimedOut])
	fmt.Fprintf(w, "duration %s\n", rep.Run.Duration.Round(time.Millisecond))

	if rep.Coverage != nil {
		gate := "passed"
		if rep.GateFailed {
			gate = "FAILED"
		}
		fmt.Fprintf(w, "coverage: lines %.1f%%  branches %.1f%%  (gate %.0f%%: %s, target %.0f%%)\n",
			rep.Coverage.LineRatio*100, rep.Coverage.BranchRatio*100,
			covMinimum*100, gate, covTarget*100)
		renderModules(w, rep.Coverage)
	}

	if len(rep.Violations) > 0 {
		fmt.Fprintf(w, "structural violations:\n")
		for _, v := range rep.Violations {
			fmt.Fprintf(w, "  - %s\n", v)
		}
	}

	if rep.BudgetExceeded {
		fmt.Fprintf(w, "run budget of %s exceeded\n", rep.Run.Budget)
	}

	switch code := ExitCode(rep); code {
	case ExitOK:
		fmt.Fprintf(w, "result: PASSED\n")
	case ExitUnitFailure:
		fmt.Fprintf(w, "result: FAILED (unit failures)\n")
	case ExitInfraFailure:
		fmt.Fprintf(w, "result: FAILED (coverage gate / structural violations)\n")
	case ExitBudgetExceeded:
		fmt.Fprintf(w, "result: FAILED (budget exceeded)\n")
	default:
		fmt.Fprintf(w, "result: FAILED (exit %d)\n", code)
	}
}

func renderOutcome(w io.Writer, run model.Run, o model.Outcome) {
	switch o.Status {
	case model.StatusPassed:
		if run.Verbose {
			fmt.Fprintf(w, "PASS %s (topic %s)  [%s]\n", o.Unit, o.Topic, o.Duration.Round(time.Millisecond))
			if o.Value != "" {
				fmt.Fprintf(w, "  value:    %s\n", o.Value)
			}
			fmt.Fprintln(w)
		}
	case model.StatusSkipped:
		if run.Verbose {
			fmt.Fprintf(w, "SKIP %s (topic %s): %s\n\n", o.Unit, o.Topic, o.SkipReason)
		}
	default:
		label := "FAIL"
		if o.Status == model.StatusErrored {
			label = "ERROR"
		} else if o.Status == model.StatusTimedOut {
			label = "TIMEOUT"
		}
		fmt.Fprintf(w, "%s %s (topic %s)  [%s]\n", label, o.Unit, o.Topic, o.Duration.Round(time.Millisecond))
		if o.Failure != nil {
			fmt.Fprintf(w, "  check:    %s\n", o.Failure.Summary)
			fmt.Fprintf(w, "  expected: %s\n", o.Failure.Expected)
			fmt.Fprintf(w, "  actual:   %s\n", o.Failure.Actual)
			if o.Failure.Context != "" {
				fmt.Fprintf(w, "  context:  %s\n", o.Failure.Context)
			}
		}
		fmt.Fprintf(w, "  rerun:    %s\n\n", ReproCommand(o.Unit))
	}
}

// ReproCommand returns a copy-pasteable standalone invocation for one unit.
func ReproCommand(unit string) string {
	return shellescape.QuoteCommand([]string{"suiterun", "run", "--mode", "standalone", unit})
}

func renderModules(w io.Writer, cov *model.CoverageReport) {
	if len(cov.Modules) == 0 {
		return
	}
	names := make([]string, 0, len(cov.Modules))
	for name := range cov.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := cov.Modules[name]
		fmt.Fprintf(w, "  %-24s lines %5.1f%% (%d/%d)  branches %5.1f%% (%d/%d)\n",
			name,
			m.LineRatio*100, m.LinesCovered, m.LinesTotal,
			m.BranchRatio*100, m.BranchesCovered, m.BranchesTotal)
	}
}
