package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/suiterun/suiterun/model"
)

func writeRun(t *testing.T, historyDir, name, id string, ts time.Time) {
	t.Helper()
	dir := filepath.Join(historyDir, name)
	require.NoError(t, os.MkdirAll(dir, 0755))

	rep := model.RunReport{Run: model.Run{ID: id, Mode: model.ModeDiscovery, Timestamp: ts}}
	data, err := json.Marshal(rep)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ReportFile), data, 0644))
}

func TestLoadEntriesNewestFirst(t *testing.T) {
	historyDir := t.TempDir()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	writeRun(t, historyDir, "20260801-120000-abc-11111111", "1111111111111111", base)
	writeRun(t, historyDir, "20260802-120000-abc-22222222", "2222222222222222", base.Add(24*time.Hour))
	writeRun(t, historyDir, "20260803-120000-abc-33333333", "3333333333333333", base.Add(48*time.Hour))

	entries, err := LoadEntries(zerolog.Nop(), historyDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "3333333333333333", entries[0].Report.Run.ID)
	require.Equal(t, "2222222222222222", entries[1].Report.Run.ID)
	require.Equal(t, "1111111111111111", entries[2].Report.Run.ID)
}

func TestLoadEntriesMissingDir(t *testing.T) {
	entries, err := LoadEntries(zerolog.Nop(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	require.Empty(t, entries)
}

// A directory with a corrupt report.json is skipped with a warning, not
// fatal for the whole history.
func TestLoadEntriesSkipsCorrupt(t *testing.T) {
	historyDir := t.TempDir()
	writeRun(t, historyDir, "good", "aaaa", time.Now())

	bad := filepath.Join(historyDir, "bad")
	require.NoError(t, os.MkdirAll(bad, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, ReportFile), []byte("{not json"), 0644))

	entries, err := LoadEntries(zerolog.Nop(), historyDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "aaaa", entries[0].Report.Run.ID)
}

func TestStoreRootAbsolute(t *testing.T) {
	root, err := StoreRoot("/var/lib/suiterun")
	require.NoError(t, err)
	require.Equal(t, "/var/lib/suiterun", root)
}

func TestDirLayout(t *testing.T) {
	require.Equal(t, filepath.Join("/x", "history"), HistoryDir("/x"))
	require.Equal(t, filepath.Join("/x", "artifacts"), ArtifactDir("/x"))
}
