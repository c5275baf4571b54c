package cli

// This file contains run recording functionality for saving run reports
// and the coverage profile to the history directory.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/suiterun/suiterun/config"
	"github.com/suiterun/suiterun/coverage"
	"github.com/suiterun/suiterun/history"
	"github.com/suiterun/suiterun/model"
	"github.com/suiterun/suiterun/report"
)

func (a *App) recordRun(storeRoot string, table *coverage.Table, rep *model.RunReport, cfg *config.Config) error {
	// Directory name: .suiterun/history/<timestamp>-<commit>-<id>
	timestamp := rep.Run.Timestamp.Format("20060102-150405")
	shortCommit := "nocommit"
	if rep.Run.Git != nil && rep.Run.Git.Commit != "" {
		shortCommit = rep.Run.Git.Commit
		if len(shortCommit) > 8 {
			shortCommit = shortCommit[:8]
		}
	}
	shortID := rep.Run.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	runName := fmt.Sprintf("%s-%s-%s", timestamp, shortCommit, shortID)
	runDir := filepath.Join(history.HistoryDir(storeRoot), runName)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	// Machine-readable report
	reportJSON, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, history.ReportFile), reportJSON, 0644); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}

	// Rendered summary
	var summary bytes.Buffer
	report.Render(&summary, rep, cfg.Coverage.Minimum, cfg.Coverage.Target)
	if err := os.WriteFile(filepath.Join(runDir, "summary.txt"), summary.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	// Coverage as a pprof profile, inspectable with go tool pprof
	if rep.Coverage != nil && table.Len() > 0 {
		profilePath := filepath.Join(runDir, "coverage.pb.gz")
		if err := coverage.WriteProfile(table, rep.Coverage, profilePath); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to write coverage profile")
		}
	}

	a.logger.Debug().Str("dir", runDir).Str("id", rep.Run.ID).Msg("Recorded run")
	return nil
}
