package cli

// This file contains the run command: it resolves a run configuration,
// executes the selected units on the worker pool, merges coverage and
// renders/records the report.

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/suiterun/suiterun/artifact"
	"github.com/suiterun/suiterun/config"
	"github.com/suiterun/suiterun/coverage"
	"github.com/suiterun/suiterun/dispatch"
	"github.com/suiterun/suiterun/history"
	"github.com/suiterun/suiterun/model"
	"github.com/suiterun/suiterun/registry"
	"github.com/suiterun/suiterun/report"
	"github.com/suiterun/suiterun/sched"
	"github.com/urfave/cli/v2"
)

func (a *App) run(ctx *cli.Context) error {
	startTime := time.Now()

	cfg, err := config.LoadOrDefault(ctx.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), report.ExitInfraFailure)
	}

	overrides, err := parseOverrides(ctx.StringSlice("set"))
	if err != nil {
		return cli.Exit(err.Error(), report.ExitInfraFailure)
	}

	req := dispatch.Request{
		Mode:     model.Mode(ctx.String("mode")),
		Patterns: ctx.Args().Slice(),
		Tags:     ctx.StringSlice("tag"),
		Workers:  ctx.Int("workers"),
		Verbose:  ctx.Bool("verbose"),
		Strict:   ctx.Bool("strict"),
		Budget:   ctx.Duration("budget"),
		Timeout:  ctx.Duration("timeout"),
	}

	rc, err := dispatch.Resolve(req, a.registry, cfg)
	if err != nil {
		return cli.Exit(err.Error(), report.ExitInfraFailure)
	}

	// Generate random 16-byte run ID
	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return fmt.Errorf("failed to generate run ID: %w", err)
	}
	runID := hex.EncodeToString(idBytes)

	run := model.Run{
		ID:        runID,
		Mode:      rc.Mode,
		Workers:   rc.Workers,
		Verbose:   rc.Verbose,
		Plotting:  rc.Plotting,
		Strict:    rc.Strict,
		Budget:    rc.Budget,
		Timestamp: startTime,
		Args:      os.Args,
	}

	if cwd, err := os.Getwd(); err == nil {
		run.WorkDir = cwd
	}

	// Capture git info (non-fatal if it fails)
	if commit, branch, err := a.getGitInfo(); err == nil {
		run.Git = &model.Git{Commit: commit, Branch: branch}
	}

	a.logger.Info().
		Str("id", runID[:8]).
		Str("mode", string(rc.Mode)).
		Int("workers", rc.Workers).
		Int("units", len(rc.Units)).
		Msg("Starting run")

	storeRoot, err := history.StoreRoot(cfg.StoreDir)
	if err != nil {
		return cli.Exit(err.Error(), report.ExitInfraFailure)
	}

	store, err := artifact.Open(a.logger, history.ArtifactDir(storeRoot), rc.Verbose)
	if err != nil {
		return cli.Exit(err.Error(), report.ExitInfraFailure)
	}

	// Non-verbose runs start from a clean store: leftovers from a prior
	// verbose run lose their pin here.
	if !rc.Verbose {
		if removed, err := store.Sweep(true); err != nil {
			a.logger.Warn().Err(err).Msg("Start-of-run sweep failed")
		} else if removed > 0 {
			a.logger.Debug().Int("removed", removed).Msg("Swept leftover artifacts")
		}
	}

	table, err := coverage.NewTable(a.registry.Regions())
	if err != nil {
		return cli.Exit(err.Error(), report.ExitInfraFailure)
	}

	runCtx := context.Background()
	if rc.Budget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, rc.Budget)
		defer cancel()
	}

	pool := sched.New(a.logger, sched.Options{
		Workers: rc.Workers,
		Timeout: rc.Timeout,
		Grace:   rc.Grace,
	})

	env := func(unit registry.Spec, worker int, mark registry.CoverageMarker) (registry.UnitConfig, func()) {
		scope := store.Scoped(unit.Name)
		ucfg := registry.UnitConfig{
			DoPlot:        rc.Plotting,
			Verbose:       rc.Verbose,
			RenderBackend: rc.RenderBackend,
			Artifacts:     scope,
			Coverage:      mark,
			Overrides:     overrides,
		}
		return ucfg, scope.CloseAll
	}

	outcomes, samples := pool.Run(runCtx, rc.Units, env)
	budgetExceeded := rc.Budget > 0 && runCtx.Err() == context.DeadlineExceeded

	cov := coverage.Merge(table, samples)
	run.Duration = time.Since(startTime)

	violations := make([]string, 0, len(rc.Violations))
	for _, v := range rc.Violations {
		violations = append(violations, v.String())
	}

	// Non-verbose runs do not keep their own artifacts either. Sweeping
	// before the report is assembled keeps the recorded artifact list in
	// step with what is actually on disk.
	if !rc.Verbose {
		if _, err := store.Sweep(false); err != nil {
			a.logger.Warn().Err(err).Msg("End-of-run sweep failed")
		}
	}

	rep := report.Build(run, outcomes, cov, violations, budgetExceeded, cfg.Coverage.Minimum)
	rep.Artifacts = store.List()

	report.Render(os.Stdout, rep, cfg.Coverage.Minimum, cfg.Coverage.Target)

	// Record the run (non-fatal if it fails)
	if err := a.recordRun(storeRoot, table, rep, cfg); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to record run")
	}

	if code := report.ExitCode(rep); code != report.ExitOK {
		return cli.Exit(fmt.Sprintf("run %s failed", runID[:8]), code)
	}
	return nil
}

// parseOverrides turns repeated key=value flags into the override map
// threaded into every unit's config.
func parseOverrides(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid override %q (want key=value)", pair)
		}
		overrides[key] = value
	}
	return overrides, nil
}
