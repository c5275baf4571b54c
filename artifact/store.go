// Package artifact manages the directory of ephemeral per-run output files.
// Writes go through scoped handles that land in a temp file and are renamed
// into place on close, so a crashing unit never leaves a half-written file
// the sweep would trust. Files are partitioned by unit name to avoid
// cross-worker collisions.
package artifact

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/suiterun/suiterun/model"
)

const manifestName = "manifest.json"

// Store is the artifact directory. One store is open per run; the sweep
// only runs at run start/end barriers, when no worker holds a handle.
type Store struct {
	logger zerolog.Logger
	dir    string
	// pin marks every artifact committed through this store so the
	// end-of-run sweep keeps it. Set for verbose runs.
	pin bool

	mu        sync.Mutex
	open      map[string]struct{} // temp paths currently open for writing
	artifacts []model.Artifact
}

// Open creates or reopens the store at dir. Existing manifest entries are
// loaded so a later sweep sees artifacts left by prior runs.
func Open(logger zerolog.Logger, dir string, pin bool) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	s := &Store{
		logger: logger,
		dir:    dir,
		pin:    pin,
		open:   make(map[string]struct{}),
	}

	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	switch {
	case err == nil:
		var manifest struct {
			Artifacts []model.Artifact `json:"artifacts"`
		}
		if err := json.Unmarshal(data, &manifest); err != nil {
			logger.Warn().Err(err).Msg("Failed to parse artifact manifest, starting empty")
		} else {
			s.artifacts = manifest.Artifacts
		}
	case os.IsNotExist(err):
		// first run against this directory
	default:
		return nil, fmt.Errorf("failed to read artifact manifest: %w", err)
	}

	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// List returns the current manifest entries.
func (s *Store) List() []model.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Artifact(nil), s.artifacts...)
}

// Scoped returns the write surface for one unit. The scheduler aborts every
// handle still open when the unit finishes, so an outcome is never
// finalized with a dangling writer.
func (s *Store) Scoped(unit string) *Scope {
	return &Scope{store: s, unit: unit}
}

// Scope is one unit's slice of the store.
type Scope struct {
	store *Store
	unit  string

	mu      sync.Mutex
	closed  bool
	handles []*Handle
}

// Create opens a new artifact file for writing. The name must be a bare
// filename; it is prefixed with the unit name on disk. A closed scope
// rejects further writers: an abandoned unit must not leave temp files no
// one aborts.
func (sc *Scope) Create(name string) (io.WriteCloser, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || name == manifestName {
		return nil, fmt.Errorf("invalid artifact name %q", name)
	}

	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return nil, fmt.Errorf("artifact scope for unit %q is closed", sc.unit)
	}
	sc.mu.Unlock()

	final := sc.unit + "__" + name
	tmp := final + ".tmp-" + uuid.NewString()[:8]
	tmpPath := filepath.Join(sc.store.dir, tmp)

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact %q: %w", name, err)
	}

	h := &Handle{store: sc.store, unit: sc.unit, f: f, tmp: tmpPath, final: final}

	sc.store.mu.Lock()
	sc.store.open[tmpPath] = struct{}{}
	sc.store.mu.Unlock()

	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		h.abort()
		return nil, fmt.Errorf("artifact scope for unit %q is closed", sc.unit)
	}
	sc.handles = append(sc.handles, h)
	sc.mu.Unlock()

	return h, nil
}

// CloseAll aborts every handle that was not committed and closes the scope
// against further Create calls. Called by the scheduler on all unit exit
// paths, including panics and abandonment.
func (sc *Scope) CloseAll() {
	sc.mu.Lock()
	sc.closed = true
	handles := sc.handles
	sc.handles = nil
	sc.mu.Unlock()

	for _, h := range handles {
		h.abort()
	}
}

// Handle is a single artifact being written. Close commits the file:
// atomically renames the temp file into place and registers it in the
// manifest.
type Handle struct {
	store *Store
	unit  string
	f     *os.File
	tmp   string
	final string

	mu   sync.Mutex
	done bool
}

func (h *Handle) Write(p []byte) (int, error) {
	return h.f.Write(p)
}

// Close commits the artifact.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return nil
	}
	h.done = true

	if err := h.f.Close(); err != nil {
		h.release()
		return fmt.Errorf("failed to close artifact %q: %w", h.final, err)
	}

	finalPath := filepath.Join(h.store.dir, h.final)
	if err := os.Rename(h.tmp, finalPath); err != nil {
		h.release()
		return fmt.Errorf("failed to commit artifact %q: %w", h.final, err)
	}
	h.release()

	var size uint64
	if info, err := os.Stat(finalPath); err == nil {
		size = uint64(info.Size())
	}

	h.store.register(model.Artifact{
		Unit:    h.unit,
		File:    h.final,
		Size:    size,
		Created: time.Now(),
		Pinned:  h.store.pin,
	})
	return nil
}

// abort discards an uncommitted handle: the temp file is closed and removed
// so the sweep never sees it as a real artifact.
func (h *Handle) abort() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return
	}
	h.done = true

	if err := h.f.Close(); err != nil {
		h.store.logger.Debug().Err(err).Str("file", h.tmp).Msg("Failed to close abandoned artifact")
	}
	if err := os.Remove(h.tmp); err != nil {
		h.store.logger.Debug().Err(err).Str("file", h.tmp).Msg("Failed to remove abandoned artifact")
	}
	h.release()
}

func (h *Handle) release() {
	h.store.mu.Lock()
	delete(h.store.open, h.tmp)
	h.store.mu.Unlock()
}

func (s *Store) register(a model.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Replace an existing entry for the same file.
	for i := range s.artifacts {
		if s.artifacts[i].File == a.File {
			s.artifacts[i] = a
			s.writeManifestLocked()
			return
		}
	}
	s.artifacts = append(s.artifacts, a)
	s.writeManifestLocked()
}

// Sweep removes swept-eligible artifacts from the directory. Pinned
// artifacts survive unless includePinned is set (the start-of-run sweep,
// where pins from prior runs no longer apply). Files currently open for
// writing are never touched.
func (s *Store) Sweep(includePinned bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	var kept []model.Artifact
	for _, a := range s.artifacts {
		if a.Pinned && !includePinned {
			kept = append(kept, a)
			continue
		}
		path := filepath.Join(s.dir, a.File)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("file", a.File).Msg("Failed to sweep artifact")
			kept = append(kept, a)
			continue
		}
		removed++
	}
	s.artifacts = kept

	// Stray files (abandoned temps, files written around the manifest) are
	// swept too, as long as nothing holds them open.
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.writeManifestLocked()
		return removed, fmt.Errorf("failed to read artifact directory: %w", err)
	}
	known := make(map[string]struct{}, len(s.artifacts))
	for _, a := range s.artifacts {
		known[a.File] = struct{}{}
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == manifestName {
			continue
		}
		if _, ok := known[e.Name()]; ok {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if _, isOpen := s.open[path]; isOpen {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.logger.Warn().Err(err).Str("file", e.Name()).Msg("Failed to sweep stray file")
			continue
		}
		removed++
	}

	s.writeManifestLocked()
	return removed, nil
}

func (s *Store) writeManifestLocked() {
	manifest := struct {
		Artifacts []model.Artifact `json:"artifacts"`
	}{Artifacts: s.artifacts}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to marshal artifact manifest")
		return
	}
	if err := os.WriteFile(filepath.Join(s.dir, manifestName), data, 0644); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write artifact manifest")
	}
}
