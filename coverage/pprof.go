package coverage

// This file exports a merged coverage report as a gzipped pprof profile so
// region hit counts can be inspected with go tool pprof.

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/pprof/profile"
	"github.com/suiterun/suiterun/model"
)

// WriteProfile renders the report as a pprof profile at path. Each declared
// region becomes one sample with its merged hit count and the number of
// branch sides observed.
func WriteProfile(t *Table, report *model.CoverageReport, path string) error {
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "hits", Unit: "count"},
			{Type: "branches", Unit: "count"},
		},
		TimeNanos:  time.Now().UnixNano(),
		PeriodType: &profile.ValueType{Type: "hits", Unit: "count"},
		Period:     1,
	}

	mappings := make(map[string]*profile.Mapping)
	getMapping := func(module string) *profile.Mapping {
		if m, ok := mappings[module]; ok {
			return m
		}
		m := &profile.Mapping{
			ID:   uint64(len(prof.Mapping) + 1),
			File: module,
		}
		mappings[module] = m
		prof.Mapping = append(prof.Mapping, m)
		return m
	}

	// Deterministic sample order keeps the written profile reproducible.
	regions := append([]model.Region(nil), t.regions...)
	sort.Slice(regions, func(i, j int) bool { return regions[i].Key() < regions[j].Key() })

	for _, r := range regions {
		key := r.Key()
		hits := int64(report.Hits[key])

		var branchSides int64
		if b, ok := report.Branches[key]; ok {
			if b.Taken {
				branchSides++
			}
			if b.NotTaken {
				branchSides++
			}
		}

		if hits == 0 && branchSides == 0 {
			continue
		}

		fn := &profile.Function{
			ID:   uint64(len(prof.Function) + 1),
			Name: key,
		}
		prof.Function = append(prof.Function, fn)

		loc := &profile.Location{
			ID:      uint64(len(prof.Location) + 1),
			Mapping: getMapping(r.Module),
			Line:    []profile.Line{{Function: fn}},
		}
		prof.Location = append(prof.Location, loc)

		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{hits, branchSides},
		})
	}

	if err := prof.CheckValid(); err != nil {
		return fmt.Errorf("invalid coverage profile: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create coverage profile: %w", err)
	}
	defer f.Close()

	if err := prof.Write(f); err != nil {
		return fmt.Errorf("failed to write coverage profile: %w", err)
	}
	return nil
}
