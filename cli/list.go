package cli

// This file contains the list command for displaying previous runs.

import (
	"fmt"
	"strings"
	"time"

	"github.com/suiterun/suiterun/config"
	"github.com/suiterun/suiterun/history"
	"github.com/suiterun/suiterun/model"
	"github.com/urfave/cli/v2"
)

func (a *App) list(ctx *cli.Context) error {
	limit := ctx.Int("limit")
	failedOnly := ctx.Bool("failed")

	cfg, err := config.LoadOrDefault(ctx.String("config"))
	if err != nil {
		return err
	}

	storeRoot, err := history.StoreRoot(cfg.StoreDir)
	if err != nil {
		return err
	}

	entries, err := history.LoadEntries(a.logger, history.HistoryDir(storeRoot))
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if failedOnly {
		var failed []history.Entry
		for _, e := range entries {
			if e.Report.Failed() {
				failed = append(failed, e)
			}
		}
		entries = failed
	}

	if len(entries) == 0 {
		fmt.Println("No runs found")
		fmt.Printf("Runs are saved to %s/<timestamp>-<commit>-<id>/\n", history.HistoryDir(storeRoot))
		return nil
	}

	displayed := entries
	if limit > 0 && limit < len(displayed) {
		displayed = displayed[:limit]
	}

	fmt.Printf("\n=== Runs (%d total) ===\n\n", len(entries))

	for _, entry := range displayed {
		rep := entry.Report
		run := rep.Run
		timestamp := run.Timestamp.Format("2006-01-02 15:04:05")
		duration := run.Duration.Round(time.Millisecond)

		status := "✓"
		if rep.Failed() {
			status = "✗"
		}

		shortID := run.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		fmt.Printf("%s  %s  [%s]  mode=%s  exit=%d  id=%s\n",
			status, timestamp, duration, run.Mode, run.ExitCode, shortID)
		fmt.Printf("   Units: passed %d, failed %d, skipped %d, errored %d, timed_out %d\n",
			rep.Counts[model.StatusPassed],
			rep.Counts[model.StatusFailed],
			rep.Counts[model.StatusSkipped],
			rep.Counts[model.StatusErrored],
			rep.Counts[model.StatusTimedOut])
		if rep.Coverage != nil {
			fmt.Printf("   Coverage: lines %.1f%%, branches %.1f%%\n",
				rep.Coverage.LineRatio*100, rep.Coverage.BranchRatio*100)
		}
		if len(run.Args) > 1 {
			fmt.Printf("   Args: %s\n", strings.Join(run.Args[1:], " "))
		}
		if run.Git != nil && run.Git.Commit != "" {
			shortCommit := run.Git.Commit
			if len(shortCommit) > 8 {
				shortCommit = shortCommit[:8]
			}
			fmt.Printf("   Commit: %s", shortCommit)
			if run.Git.Branch != "" {
				fmt.Printf(" (%s)", run.Git.Branch)
			}
			fmt.Println()
		}
		fmt.Printf("   %s\n", entry.FullPath)
		fmt.Println()
	}

	fmt.Println("\nView a run report: suiterun view <id>")
	fmt.Println("View coverage hotspots: go tool pprof <path>/coverage.pb.gz")

	return nil
}
