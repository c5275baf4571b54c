package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/suiterun/suiterun/history"
	"github.com/suiterun/suiterun/model"
	"github.com/suiterun/suiterun/registry"
)

// runOnce executes one full run of a single artifact-writing unit against a
// throwaway store and returns the recorded report.
func runOnce(t *testing.T, verbose bool) (string, model.RunReport) {
	t.Helper()

	reg := registry.New()
	reg.Suite("io").Add(registry.Spec{
		Name: "test_writes_artifact",
		Run: func(ctx context.Context, cfg registry.UnitConfig) (any, error) {
			w, err := cfg.Artifacts.Create("out.txt")
			if err != nil {
				return nil, err
			}
			fmt.Fprintln(w, "data")
			return nil, w.Close()
		},
	})

	storeRoot := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf("store_dir: %q\n", storeRoot)), 0644))

	args := []string{"suiterun", "--config", cfgPath, "run"}
	if verbose {
		args = append(args, "--verbose")
	}
	require.NoError(t, New(reg).Run(args))

	entries, err := history.LoadEntries(zerolog.Nop(), history.HistoryDir(storeRoot))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return storeRoot, entries[0].Report
}

func artifactFiles(t *testing.T, storeRoot string) []string {
	t.Helper()
	entries, err := os.ReadDir(history.ArtifactDir(storeRoot))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.Name() == "manifest.json" {
			continue
		}
		names = append(names, e.Name())
	}
	return names
}

// A non-verbose run sweeps its artifacts at the end; the recorded report
// must not list files that the sweep removed.
func TestRunRecordedArtifactsMatchDisk(t *testing.T) {
	storeRoot, rep := runOnce(t, false)

	require.Equal(t, 1, rep.Counts[model.StatusPassed])
	require.Empty(t, rep.Artifacts)
	require.Empty(t, artifactFiles(t, storeRoot))
}

func TestRunVerboseKeepsRecordedArtifacts(t *testing.T) {
	storeRoot, rep := runOnce(t, true)

	require.Len(t, rep.Artifacts, 1)
	require.Equal(t, "test_writes_artifact", rep.Artifacts[0].Unit)
	require.True(t, rep.Artifacts[0].Pinned)
	require.FileExists(t, filepath.Join(history.ArtifactDir(storeRoot), rep.Artifacts[0].File))
}
