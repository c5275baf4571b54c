package history

// This file contains shared history utilities for loading and parsing
// recorded run reports.

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/suiterun/suiterun/model"
)

// ReportFile is the machine-readable record inside each run directory.
const ReportFile = "report.json"

type Entry struct {
	Report   model.RunReport
	FullPath string
}

// StoreRoot resolves the persisted-state root. Relative dirs resolve
// against the git repository root when inside one, otherwise the working
// directory.
func StoreRoot(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return dir, nil
	}

	base, err := repoRoot()
	if err != nil {
		base, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to resolve store root: %w", err)
		}
	}
	return filepath.Join(base, dir), nil
}

// HistoryDir returns the history directory under the store root.
func HistoryDir(storeRoot string) string {
	return filepath.Join(storeRoot, "history")
}

// ArtifactDir returns the artifact directory under the store root.
func ArtifactDir(storeRoot string) string {
	return filepath.Join(storeRoot, "artifacts")
}

// LoadEntries loads all recorded runs under the history directory, newest
// first. A missing directory yields no entries.
func LoadEntries(logger zerolog.Logger, historyDir string) ([]Entry, error) {
	if _, err := os.Stat(historyDir); os.IsNotExist(err) {
		return nil, nil
	}

	var entries []Entry
	err := filepath.WalkDir(historyDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			reportPath := filepath.Join(path, ReportFile)
			if _, err := os.Stat(reportPath); err == nil {
				report, err := parseReportJSON(reportPath)
				if err != nil {
					logger.Warn().Err(err).Str("path", reportPath).Msg("Failed to parse report.json")
					return nil
				}

				entries = append(entries, Entry{
					Report:   report,
					FullPath: path,
				})
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk history directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Report.Run.Timestamp.After(entries[j].Report.Run.Timestamp)
	})

	return entries, nil
}

func repoRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not in a git repository: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// parseReportJSON parses a report.json file.
func parseReportJSON(reportPath string) (model.RunReport, error) {
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return model.RunReport{}, err
	}

	var report model.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return model.RunReport{}, err
	}

	return report, nil
}
