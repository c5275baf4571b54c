// Package coverage aggregates per-worker coverage samples into one
// threshold-checked report. The merge is a per-region max/union, which makes
// it commutative and associative: worker completion order never changes the
// final report.
package coverage

import (
	"fmt"
	"sync"

	"github.com/suiterun/suiterun/model"
)

// Recorder collects region hits into one sample. Workers execute units
// sequentially, but a unit may fan out internally, so marking is locked.
type Recorder struct {
	mu     sync.Mutex
	sample *model.CoverageSample
}

// NewRecorder returns a recorder writing into sample.
func NewRecorder(sample *model.CoverageSample) *Recorder {
	return &Recorder{sample: sample}
}

// Hit marks one execution of region.
func (r *Recorder) Hit(region string) {
	r.HitN(region, 1)
}

// HitN marks n executions of region.
func (r *Recorder) HitN(region string, n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sample.Hits == nil {
		r.sample.Hits = make(map[string]uint64)
	}
	r.sample.Hits[region] += n
}

// Detach returns the sample with exclusive ownership of its maps. The live
// sample gets fresh maps, so an abandoned unit that keeps marking never
// touches what the caller merges.
func (r *Recorder) Detach() model.CoverageSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	detached := *r.sample
	r.sample.Hits = nil
	r.sample.Branches = nil
	return detached
}

// Branch marks one side of region's branch pair.
func (r *Recorder) Branch(region string, taken bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sample.Branches == nil {
		r.sample.Branches = make(map[string]model.BranchHits)
	}
	b := r.sample.Branches[region]
	if taken {
		b.Taken = true
	} else {
		b.NotTaken = true
	}
	r.sample.Branches[region] = b
}

// Table is the universe of declared regions a report is computed against.
type Table struct {
	regions []model.Region
	byKey   map[string]model.Region
}

// NewTable builds a table from declared regions. Duplicate keys are an
// error: the denominator must count every region exactly once.
func NewTable(regions []model.Region) (*Table, error) {
	t := &Table{byKey: make(map[string]model.Region, len(regions))}
	for _, r := range regions {
		key := r.Key()
		if _, dup := t.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate coverage region %q", key)
		}
		t.byKey[key] = r
		t.regions = append(t.regions, r)
	}
	return t, nil
}

// Len returns the number of declared regions.
func (t *Table) Len() int { return len(t.regions) }

// Merge folds samples into a single report against the table. Region keys
// not declared in the table are ignored.
func Merge(t *Table, samples []model.CoverageSample) *model.CoverageReport {
	hits := make(map[string]uint64)
	branches := make(map[string]model.BranchHits)

	for _, s := range samples {
		for key, n := range s.Hits {
			if _, known := t.byKey[key]; !known {
				continue
			}
			if n > hits[key] {
				hits[key] = n
			}
		}
		for key, b := range s.Branches {
			r, known := t.byKey[key]
			if !known || !r.HasBranch {
				continue
			}
			merged := branches[key]
			merged.Taken = merged.Taken || b.Taken
			merged.NotTaken = merged.NotTaken || b.NotTaken
			branches[key] = merged
		}
	}

	report := &model.CoverageReport{
		Hits:     hits,
		Branches: branches,
		Modules:  make(map[string]model.ModuleCoverage),
	}

	var linesTotal, linesCovered, branchTotal, branchCovered int
	for _, r := range t.regions {
		mod := report.Modules[r.Module]

		mod.LinesTotal += r.Lines
		linesTotal += r.Lines
		if hits[r.Key()] > 0 {
			mod.LinesCovered += r.Lines
			linesCovered += r.Lines
		}

		if r.HasBranch {
			mod.BranchesTotal += 2
			branchTotal += 2
			b := branches[r.Key()]
			if b.Taken {
				mod.BranchesCovered++
				branchCovered++
			}
			if b.NotTaken {
				mod.BranchesCovered++
				branchCovered++
			}
		}

		report.Modules[r.Module] = mod
	}

	for name, mod := range report.Modules {
		mod.LineRatio = ratio(mod.LinesCovered, mod.LinesTotal)
		mod.BranchRatio = ratio(mod.BranchesCovered, mod.BranchesTotal)
		report.Modules[name] = mod
	}
	report.LineRatio = ratio(linesCovered, linesTotal)
	report.BranchRatio = ratio(branchCovered, branchTotal)

	return report
}

// GatePassed reports whether the merged branch ratio meets the minimum.
func GatePassed(report *model.CoverageReport, minimum float64) bool {
	return report.BranchRatio >= minimum
}

func ratio(covered, total int) float64 {
	if total == 0 {
		// An empty denominator cannot fail the gate.
		return 1
	}
	return float64(covered) / float64(total)
}
