package cli

// This file contains the view command for displaying recorded run reports.

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/suiterun/suiterun/config"
	"github.com/suiterun/suiterun/history"
	"github.com/suiterun/suiterun/report"
	"github.com/urfave/cli/v2"
)

// resolveViewTarget picks the history entry matching arg: "0" for the last
// run, negative indexes counting back, anything else a hex ID prefix.
// Entries are assumed newest first.
func resolveViewTarget(arg string, entries []history.Entry) (*history.Entry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no recorded runs found")
	}

	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if parsed > 0 {
			return nil, fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, etc.)", arg)
		}
		index := int(-parsed)
		if index >= len(entries) {
			return nil, fmt.Errorf("index %s out of range (only %d recorded runs)", arg, len(entries))
		}
		return &entries[index], nil
	}

	hexID := strings.ToLower(arg)
	for i := range entries {
		if strings.HasPrefix(strings.ToLower(entries[i].Report.Run.ID), hexID) {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("no recorded run matching ID: %s", arg)
}

func (a *App) view(ctx *cli.Context) error {
	arg := "0"
	if ctx.Args().Len() > 0 {
		arg = ctx.Args().First()
	}

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

	entry, err := resolveViewTarget(arg, entries)
	if err != nil {
		return err
	}

	rep := entry.Report
	// Re-render verbosely so passed units show as well.
	rep.Run.Verbose = true
	report.Render(os.Stdout, &rep, cfg.Coverage.Minimum, cfg.Coverage.Target)

	if len(rep.Artifacts) > 0 {
		fmt.Println("artifacts:")
		for _, art := range rep.Artifacts {
			pin := ""
			if art.Pinned {
				pin = "  (pinned)"
			}
			fmt.Printf("  %s  %s (%.1f KB)%s\n", art.Unit, art.File, float64(art.Size)/1024, pin)
		}
	}
	fmt.Printf("recorded at: %s\n", entry.FullPath)
	return nil
}
