package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/suiterun/suiterun/model"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		rep  *model.RunReport
		want int
	}{
		{
			name: "all passed",
			rep: &model.RunReport{
				Counts: map[model.Status]int{model.StatusPassed: 3},
			},
			want: ExitOK,
		},
		{
			name: "skips do not fail the run",
			rep: &model.RunReport{
				Counts: map[model.Status]int{model.StatusPassed: 2, model.StatusSkipped: 1},
			},
			want: ExitOK,
		},
		{
			name: "unit failure",
			rep: &model.RunReport{
				Counts: map[model.Status]int{model.StatusPassed: 2, model.StatusFailed: 1},
			},
			want: ExitUnitFailure,
		},
		{
			name: "errored counts as unit failure",
			rep: &model.RunReport{
				Counts: map[model.Status]int{model.StatusErrored: 1},
			},
			want: ExitUnitFailure,
		},
		{
			name: "timeout counts as unit failure",
			rep: &model.RunReport{
				Counts: map[model.Status]int{model.StatusTimedOut: 1},
			},
			want: ExitUnitFailure,
		},
		{
			name: "gate failure under strict",
			rep: &model.RunReport{
				Run:        model.Run{Strict: true},
				Counts:     map[model.Status]int{model.StatusPassed: 3},
				GateFailed: true,
			},
			want: ExitInfraFailure,
		},
		{
			name: "gate failure without strict passes",
			rep: &model.RunReport{
				Counts:     map[model.Status]int{model.StatusPassed: 3},
				GateFailed: true,
			},
			want: ExitOK,
		},
		{
			name: "violations under strict",
			rep: &model.RunReport{
				Run:        model.Run{Strict: true},
				Counts:     map[model.Status]int{model.StatusPassed: 3},
				Violations: []string{"unit bad_name: name lacks the test_ discriminator"},
			},
			want: ExitInfraFailure,
		},
		{
			name: "budget beats unit failures",
			rep: &model.RunReport{
				Counts:         map[model.Status]int{model.StatusFailed: 2},
				BudgetExceeded: true,
			},
			want: ExitBudgetExceeded,
		},
		{
			name: "budget beats gate",
			rep: &model.RunReport{
				Run:            model.Run{Strict: true},
				Counts:         map[model.Status]int{},
				GateFailed:     true,
				BudgetExceeded: true,
			},
			want: ExitBudgetExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExitCode(tt.rep))
		})
	}
}

func TestBuildSetsGateAndExit(t *testing.T) {
	outcomes := []model.Outcome{
		{Unit: "test_a", Status: model.StatusPassed},
		{Unit: "test_b", Status: model.StatusFailed, Failure: &model.FailureDetail{Summary: "x"}},
	}
	cov := &model.CoverageReport{LineRatio: 0.9, BranchRatio: 0.7}

	rep := Build(model.Run{Strict: true}, outcomes, cov, nil, false, 0.8)

	require.True(t, rep.GateFailed)
	require.Equal(t, 1, rep.Counts[model.StatusPassed])
	require.Equal(t, 1, rep.Counts[model.StatusFailed])
	require.Equal(t, ExitUnitFailure, rep.Run.ExitCode, "unit failure outranks the gate")
	require.Equal(t, outcomes, rep.Outcomes, "registry order preserved")
}

// Every failing outcome renders with unit name, check, expected, actual and
// context plus a repro command.
func TestRenderFailureBlock(t *testing.T) {
	rep := Build(model.Run{ID: "abcdef0123456789", Mode: model.ModeDiscovery}, []model.Outcome{
		{Unit: "test_pass", Topic: "stats", Status: model.StatusPassed},
		{
			Unit:   "test_mean",
			Topic:  "stats",
			Status: model.StatusFailed,
			Failure: &model.FailureDetail{
				Summary:  "mean of known series",
				Expected: "3.5",
				Actual:   "3.2",
				Context:  "series=[1 2 3 4 5 6]",
			},
		},
	}, nil, nil, false, 0.8)

	var buf bytes.Buffer
	Render(&buf, rep, 0.8, 0.9)
	out := buf.String()

	require.Contains(t, out, "FAIL test_mean")
	require.Contains(t, out, "check:    mean of known series")
	require.Contains(t, out, "expected: 3.5")
	require.Contains(t, out, "actual:   3.2")
	require.Contains(t, out, "context:  series=[1 2 3 4 5 6]")
	require.Contains(t, out, "rerun:    suiterun run --mode standalone test_mean")
	require.Contains(t, out, "result: FAILED (unit failures)")

	// Quiet runs keep passing units out of the report body.
	require.NotContains(t, out, "PASS test_pass")
}

func TestRenderVerboseShowsPassAndSkip(t *testing.T) {
	rep := Build(model.Run{ID: "aa", Mode: model.ModeStandalone, Verbose: true}, []model.Outcome{
		{Unit: "test_pass", Topic: "stats", Status: model.StatusPassed, Value: "3.5"},
		{Unit: "test_skip", Topic: "stats", Status: model.StatusSkipped, SkipReason: "needs the reference image set"},
	}, nil, nil, false, 0.8)

	var buf bytes.Buffer
	Render(&buf, rep, 0.8, 0.9)
	out := buf.String()

	require.Contains(t, out, "PASS test_pass")
	require.Contains(t, out, "value:    3.5")
	require.Contains(t, out, "SKIP test_skip (topic stats): needs the reference image set")
	require.Contains(t, out, "result: PASSED")
}

func TestRenderCoverageAndViolations(t *testing.T) {
	cov := &model.CoverageReport{
		LineRatio:   0.75,
		BranchRatio: 0.5,
		Modules: map[string]model.ModuleCoverage{
			"stats": {LineRatio: 0.75, LinesCovered: 12, LinesTotal: 16, BranchRatio: 0.5, BranchesCovered: 2, BranchesTotal: 4},
		},
	}
	rep := Build(model.Run{ID: "aa", Mode: model.ModeAutomated, Strict: true, Budget: time.Minute},
		[]model.Outcome{{Unit: "test_a", Status: model.StatusPassed}},
		cov,
		[]string{"unit bad_name: name lacks the test_ discriminator"},
		true, 0.8)

	var buf bytes.Buffer
	Render(&buf, rep, 0.8, 0.9)
	out := buf.String()

	require.Contains(t, out, "lines 75.0%")
	require.Contains(t, out, "branches 50.0%")
	require.Contains(t, out, "gate 80%: FAILED")
	require.Contains(t, out, "structural violations:")
	require.Contains(t, out, "bad_name")
	require.Contains(t, out, "run budget of 1m0s exceeded")
	require.Contains(t, out, "result: FAILED (budget exceeded)")
}

func TestReproCommandQuoting(t *testing.T) {
	cmd := ReproCommand("test_name with space")
	require.Equal(t, `suiterun run --mode standalone 'test_name with space'`, cmd)
	require.True(t, strings.HasPrefix(ReproCommand("test_plain"), "suiterun run"))
}
