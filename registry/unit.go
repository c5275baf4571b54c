package registry

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Discriminator is the reserved prefix every unit name must carry.
const Discriminator = "test_"

// ArtifactWriter is the store-facing capability handed to a unit. Every
// writer created through it is closed before the unit's outcome is
// finalized, on all exit paths.
type ArtifactWriter interface {
	Create(name string) (io.WriteCloser, error)
}

// CoverageMarker lets a unit report which regions it executed.
type CoverageMarker interface {
	Hit(region string)
	HitN(region string, n uint64)
	Branch(region string, taken bool)
}

// UnitConfig is the resolved configuration threaded into each unit's Run
// call. There is no process-wide toggle; everything a unit may consult
// lives here.
type UnitConfig struct {
	// DoPlot enables plot output. Off in discovery/automated runs.
	DoPlot bool
	// Verbose enables extra diagnostic output from the unit.
	Verbose bool
	// RenderBackend names the headless plot backend. Only meaningful when
	// DoPlot is set.
	RenderBackend string
	// Artifacts is the unit's scoped slice of the artifact store.
	Artifacts ArtifactWriter
	// Coverage receives the unit's region hits.
	Coverage CoverageMarker
	// Overrides carries unit-specific parameter overrides, keyed by
	// parameter name. Missing keys mean the declared default applies.
	Overrides map[string]any
}

// Param returns the override for name, or def when absent.
func (c UnitConfig) Param(name string, def any) any {
	if v, ok := c.Overrides[name]; ok {
		return v
	}
	return def
}

// RunFunc is the body of a unit. It returns the most relevant object it
// produced (printed in standalone mode) and an error: nil for a pass, a
// *Failure for an assertion that did not hold, anything else for an
// unexpected fault.
type RunFunc func(ctx context.Context, cfg UnitConfig) (any, error)

// ParamSpec declares one recognized parameter of a unit and its default.
type ParamSpec struct {
	Name    string
	Default any
}

// Spec is the build-time registration record for one unit. Specs are
// immutable for the duration of a run.
type Spec struct {
	// Name uniquely identifies the unit; it must begin with Discriminator.
	Name string
	// Topic of the declaring suite. Filled in at registration; a declared
	// topic that disagrees with the suite is a structural violation.
	Topic string
	// Tags for filtering (e.g. "unit", "integration")
	Tags []string
	// Timeout overrides the configured per-unit timeout when positive
	Timeout time.Duration
	// SkipReason, when non-empty, skips the unit and records why
	SkipReason string
	// Params declares recognized overrides and their defaults
	Params []ParamSpec
	// Run is the unit body
	Run RunFunc
}

// HasTag reports whether the spec carries the given tag.
func (s Spec) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Failure is the error a unit returns when an expectation does not hold.
// The scheduler records it as a Failed outcome; any other error becomes
// Errored.
type Failure struct {
	// One-line summary of what was checked
	Summary string
	// Expected and Actual are the rendered values the check compared
	Expected string
	Actual   string
	// Context is free-form detail for the bug report
	Context string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", f.Summary, f.Expected, f.Actual)
}

// Failf builds a Failure from arbitrary expected/actual values.
func Failf(summary string, expected, actual any) *Failure {
	return &Failure{
		Summary:  summary,
		Expected: fmt.Sprintf("%v", expected),
		Actual:   fmt.Sprintf("%v", actual),
	}
}

// WithContext attaches free-form context and returns the failure.
func (f *Failure) WithContext(format string, args ...any) *Failure {
	f.Context = fmt.Sprintf(format, args...)
	return f
}

// Expect compares got against want and returns a Failure when they differ.
// It is deliberately minimal; units bring their own assertions.
func Expect(summary string, want, got any) error {
	if fmt.Sprintf("%v", want) == fmt.Sprintf("%v", got) {
		return nil
	}
	return Failf(summary, want, got)
}
