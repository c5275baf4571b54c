// Package registry catalogs test units. Units are registered explicitly at
// build time, grouped into topic suites; discovery filters and orders them
// deterministically so repeated discovery over an unchanged registry yields
// an identical sequence.
package registry

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/suiterun/suiterun/model"
)

// Violation is a structural inconsistency found during discovery. It is
// reported with the run and fatal only under a strict run.
type Violation struct {
	Unit   string
	Kind   string
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: unit %q: %s", v.Kind, v.Unit, v.Detail)
}

// Violation kinds.
const (
	ViolationName      = "bad-name"
	ViolationTopic     = "topic-mismatch"
	ViolationDuplicate = "duplicate-name"
	ViolationNoBody    = "no-body"
)

// Suite groups units under one topic. Declaration order within a suite is
// preserved through discovery.
type Suite struct {
	topic   string
	units   []Spec
	regions []model.Region
}

// Topic returns the suite's topic name.
func (s *Suite) Topic() string { return s.topic }

// Add registers a unit spec with the suite and returns the suite for
// chaining. The spec's Topic is stamped with the suite topic when empty;
// a disagreeing declared topic is caught at discovery.
func (s *Suite) Add(spec Spec) *Suite {
	if spec.Topic == "" {
		spec.Topic = s.topic
	}
	s.units = append(s.units, spec)
	return s
}

// Cover declares the coverage regions owned by this suite's module.
func (s *Suite) Cover(regions ...model.Region) *Suite {
	s.regions = append(s.regions, regions...)
	return s
}

// Registry holds the registered suites. It is mutated only during
// registration; once a run begins it is read-only.
type Registry struct {
	suites map[string]*Suite
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{suites: make(map[string]*Suite)}
}

// Suite returns the suite for topic, creating it on first use.
func (r *Registry) Suite(topic string) *Suite {
	s, ok := r.suites[topic]
	if !ok {
		s = &Suite{topic: topic}
		r.suites[topic] = s
	}
	return s
}

// Regions returns every declared coverage region, ordered by topic then
// declaration order.
func (r *Registry) Regions() []model.Region {
	var regions []model.Region
	for _, s := range r.sortedSuites() {
		regions = append(regions, s.regions...)
	}
	return regions
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.suites {
		n += len(s.units)
	}
	return n
}

// Filter narrows discovery to units matching name globs and/or tags. A nil
// or zero filter matches everything. Patterns and tags combine as OR within
// themselves and AND across: a unit must match some pattern (if any are
// given) and carry some tag (if any are given).
type Filter struct {
	Patterns []string
	Tags     []string
}

func (f Filter) matches(spec Spec) bool {
	if len(f.Patterns) > 0 {
		hit := false
		for _, p := range f.Patterns {
			if ok, _ := path.Match(p, spec.Name); ok || p == spec.Name {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if len(f.Tags) > 0 {
		hit := false
		for _, t := range f.Tags {
			if spec.HasTag(t) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// MatchesName reports whether any registered unit matches the given name or
// glob pattern, regardless of tags.
func (r *Registry) MatchesName(pattern string) bool {
	for _, s := range r.suites {
		for _, u := range s.units {
			if ok, _ := path.Match(pattern, u.Name); ok || pattern == u.Name {
				return true
			}
		}
	}
	return false
}

// Discover returns the filtered units in deterministic order (lexicographic
// by topic, then declaration order) together with the structural violations
// found across the whole registry. Violations do not remove units from the
// result; strictness is the caller's policy.
func (r *Registry) Discover(filter Filter) ([]Spec, []Violation) {
	var units []Spec
	var violations []Violation
	seen := make(map[string]string) // unit name -> first topic

	for _, s := range r.sortedSuites() {
		for _, u := range s.units {
			if !strings.HasPrefix(u.Name, Discriminator) {
				violations = append(violations, Violation{
					Unit:   u.Name,
					Kind:   ViolationName,
					Detail: fmt.Sprintf("name must begin with %q", Discriminator),
				})
			}
			if u.Topic != s.topic {
				violations = append(violations, Violation{
					Unit:   u.Name,
					Kind:   ViolationTopic,
					Detail: fmt.Sprintf("declared topic %q does not match suite topic %q", u.Topic, s.topic),
				})
			}
			if u.Run == nil {
				violations = append(violations, Violation{
					Unit:   u.Name,
					Kind:   ViolationNoBody,
					Detail: "unit has no run body",
				})
			}
			if prior, dup := seen[u.Name]; dup {
				// Duplicate names across topics have no defined resolution
				// order; both stay in the catalog and the conflict is
				// reported.
				violations = append(violations, Violation{
					Unit:   u.Name,
					Kind:   ViolationDuplicate,
					Detail: fmt.Sprintf("already declared in topic %q", prior),
				})
			} else {
				seen[u.Name] = s.topic
			}
			if filter.matches(u) {
				units = append(units, u)
			}
		}
	}

	return units, violations
}

func (r *Registry) sortedSuites() []*Suite {
	topics := make([]string, 0, len(r.suites))
	for topic := range r.suites {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	suites := make([]*Suite, 0, len(topics))
	for _, topic := range topics {
		suites = append(suites, r.suites[topic])
	}
	return suites
}
