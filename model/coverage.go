package model

// Region identifies one measurable piece of the code exercised by units.
// Regions are declared at suite registration time and form the denominator
// of the coverage ratios.
type Region struct {
	// Module groups regions for the per-module breakdown
	Module string `json:"module"`
	Name   string `json:"name"`
	// Statement lines attributed to this region
	Lines int `json:"lines"`
	// Whether the region carries a branch pair (taken / not taken)
	HasBranch bool `json:"has_branch,omitempty"`
}

// Key returns the identifier units use to mark the region.
func (r Region) Key() string {
	return r.Module + "/" + r.Name
}

// BranchHits records which sides of a region's branch pair executed.
type BranchHits struct {
	Taken    bool `json:"taken"`
	NotTaken bool `json:"not_taken"`
}

// CoverageSample is the per-unit record of regions executed while the owning
// worker ran that unit. It belongs to the worker until merged.
type CoverageSample struct {
	ID     string `json:"id"`
	Worker int    `json:"worker"`
	Unit   string `json:"unit"`
	// Region key -> hit count
	Hits map[string]uint64 `json:"hits,omitempty"`
	// Region key -> branch pair flags
	Branches map[string]BranchHits `json:"branches,omitempty"`
}

// ModuleCoverage is the per-module slice of a CoverageReport.
type ModuleCoverage struct {
	LineRatio       float64 `json:"line_ratio"`
	BranchRatio     float64 `json:"branch_ratio"`
	LinesCovered    int     `json:"lines_covered"`
	LinesTotal      int     `json:"lines_total"`
	BranchesCovered int     `json:"branches_covered"`
	BranchesTotal   int     `json:"branches_total"`
}

// CoverageReport is the run-level merge of all samples. Merging is a
// per-region max/union, so ratios never decrease as samples are added and
// the merge order cannot change the result.
type CoverageReport struct {
	LineRatio   float64                   `json:"line_ratio"`
	BranchRatio float64                   `json:"branch_ratio"`
	Modules     map[string]ModuleCoverage `json:"modules,omitempty"`
	// Merged per-region hit counts
	Hits map[string]uint64 `json:"hits,omitempty"`
	// Merged per-region branch flags
	Branches map[string]BranchHits `json:"branches,omitempty"`
}
