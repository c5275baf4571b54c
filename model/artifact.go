package model

import "time"

// Artifact represents a debugging-output file a unit wrote into the store.
// Artifacts are ephemeral: a sweep removes them unless they are pinned by a
// verbose run.
type Artifact struct {
	// Name of the unit that produced the file
	Unit string `json:"unit"`
	// Filename relative to the store directory
	File string `json:"file"`
	Size uint64 `json:"size"`
	// Creation time
	Created time.Time `json:"created"`
	// Pinned artifacts survive the end-of-run sweep
	Pinned bool `json:"pinned,omitempty"`
}
