// Package dispatch resolves an invocation into a complete run
// configuration before any unit executes. The three modes share one
// registry and one scheduler; standalone is simply a single worker with
// verbose defaults, not a separate code path.
package dispatch

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/suiterun/suiterun/config"
	"github.com/suiterun/suiterun/model"
	"github.com/suiterun/suiterun/registry"
)

// RenderBackendEnv selects the headless plot backend for units that produce
// plots. Consulted only when plotting is enabled.
const RenderBackendEnv = "SUITERUN_RENDER_BACKEND"

// ErrNoSuchUnit is returned when an explicitly requested unit name matches
// nothing in the registry. This fails the run before execution; it is never
// treated as zero matches.
var ErrNoSuchUnit = errors.New("no such unit")

// Request is the raw invocation: how the run was started and what was
// asked for. Zero values mean "use the mode default".
type Request struct {
	Mode     model.Mode
	Patterns []string
	Tags     []string
	Workers  int
	Verbose  bool
	Strict   bool
	Budget   time.Duration
	Timeout  time.Duration
}

// RunConfig is the fully-resolved configuration for one run. It is
// immutable once the run starts.
type RunConfig struct {
	Mode     model.Mode
	Units    []registry.Spec
	Workers  int
	Verbose  bool
	Plotting bool
	Strict   bool
	// Budget bounds the whole run. Zero outside automated mode.
	Budget time.Duration
	// Timeout is the default per-unit limit.
	Timeout time.Duration
	// Grace is how long running units may continue after cancellation.
	Grace         time.Duration
	RenderBackend string
	Violations    []registry.Violation
}

// Resolve produces the run configuration for a request against the
// registry, applying mode defaults from cfg. Structural violations are
// returned with the config; under strict they are an error.
func Resolve(req Request, reg *registry.Registry, cfg *config.Config) (*RunConfig, error) {
	switch req.Mode {
	case model.ModeStandalone, model.ModeDiscovery, model.ModeAutomated:
	case "":
		return nil, errors.New("no mode selected")
	default:
		return nil, fmt.Errorf("unknown mode %q", req.Mode)
	}

	rc := &RunConfig{
		Mode:    req.Mode,
		Strict:  req.Strict,
		Timeout: req.Timeout,
		Grace:   cfg.Grace,
	}
	if rc.Timeout <= 0 {
		rc.Timeout = cfg.UnitTimeout
	}

	switch req.Mode {
	case model.ModeStandalone:
		// Interactive inspection: no parallelism, side effects on.
		if len(req.Patterns) == 0 {
			return nil, errors.New("standalone mode requires at least one unit name")
		}
		rc.Workers = 1
		rc.Verbose = true
		rc.Plotting = true
	case model.ModeDiscovery, model.ModeAutomated:
		rc.Workers = req.Workers
		if rc.Workers <= 0 {
			rc.Workers = cfg.Workers
		}
		if rc.Workers <= 0 {
			rc.Workers = runtime.NumCPU()
		}
		rc.Verbose = req.Verbose
		rc.Plotting = false
	}

	if req.Mode == model.ModeAutomated {
		rc.Budget = req.Budget
		if rc.Budget <= 0 {
			rc.Budget = cfg.Budget
		}
		if rc.Budget <= 0 {
			return nil, errors.New("automated mode requires a wall-clock budget")
		}
	}

	// Naming a unit that does not exist fails the run before execution.
	for _, pattern := range req.Patterns {
		if !reg.MatchesName(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrNoSuchUnit, pattern)
		}
	}

	units, violations := reg.Discover(registry.Filter{Patterns: req.Patterns, Tags: req.Tags})
	rc.Units = units
	rc.Violations = violations

	if rc.Strict && len(violations) > 0 {
		return nil, fmt.Errorf("registry has %d structural violation(s) and strict mode is set; first: %s",
			len(violations), violations[0])
	}

	if rc.Plotting {
		rc.RenderBackend = cfg.RenderBackend
		if env := os.Getenv(RenderBackendEnv); env != "" {
			rc.RenderBackend = env
		}
	}

	return rc, nil
}
