package registry

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suiterun/suiterun/model"
)

func noopRun(ctx context.Context, cfg UnitConfig) (any, error) {
	return nil, nil
}

func newTestRegistry() *Registry {
	reg := New()
	// Registered out of topic order on purpose; discovery must sort.
	reg.Suite("zonal").
		Add(Spec{Name: "test_zonal_first", Tags: []string{"unit"}, Run: noopRun}).
		Add(Spec{Name: "test_zonal_second", Tags: []string{"integration"}, Run: noopRun})
	reg.Suite("alpha").
		Add(Spec{Name: "test_alpha_only", Tags: []string{"unit"}, Run: noopRun})
	return reg
}

func names(units []Spec) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.Name)
	}
	return out
}

func TestDiscoverOrdering(t *testing.T) {
	reg := newTestRegistry()

	units, violations := reg.Discover(Filter{})
	require.Empty(t, violations)
	require.Equal(t,
		[]string{"test_alpha_only", "test_zonal_first", "test_zonal_second"},
		names(units))
}

func TestDiscoverDeterministic(t *testing.T) {
	reg := newTestRegistry()

	first, _ := reg.Discover(Filter{})
	for i := 0; i < 10; i++ {
		again, _ := reg.Discover(Filter{})
		if !reflect.DeepEqual(names(first), names(again)) {
			t.Fatalf("discovery order changed on iteration %d: %v vs %v", i, names(first), names(again))
		}
	}
}

func TestDiscoverFilter(t *testing.T) {
	reg := newTestRegistry()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{
			name:   "by tag",
			filter: Filter{Tags: []string{"integration"}},
			want:   []string{"test_zonal_second"},
		},
		{
			name:   "by exact name",
			filter: Filter{Patterns: []string{"test_alpha_only"}},
			want:   []string{"test_alpha_only"},
		},
		{
			name:   "by glob",
			filter: Filter{Patterns: []string{"test_zonal_*"}},
			want:   []string{"test_zonal_first", "test_zonal_second"},
		},
		{
			name:   "pattern and tag must both match",
			filter: Filter{Patterns: []string{"test_zonal_*"}, Tags: []string{"unit"}},
			want:   []string{"test_zonal_first"},
		},
		{
			name:   "no match",
			filter: Filter{Patterns: []string{"test_missing"}},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, _ := reg.Discover(tt.filter)
			got := names(units)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Discover(%+v) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestDiscoverViolations(t *testing.T) {
	reg := New()
	reg.Suite("epi").
		Add(Spec{Name: "missing_discriminator", Run: noopRun}).
		Add(Spec{Name: "test_wrong_topic", Topic: "other", Run: noopRun}).
		Add(Spec{Name: "test_no_body"})
	reg.Suite("sim").
		Add(Spec{Name: "test_dup", Run: noopRun})
	reg.Suite("viz").
		Add(Spec{Name: "test_dup", Run: noopRun})

	_, violations := reg.Discover(Filter{})

	kinds := make(map[string]int)
	for _, v := range violations {
		kinds[v.Kind]++
	}
	require.Equal(t, 1, kinds[ViolationName])
	require.Equal(t, 1, kinds[ViolationTopic])
	require.Equal(t, 1, kinds[ViolationNoBody])
	require.Equal(t, 1, kinds[ViolationDuplicate])
}

func TestMatchesName(t *testing.T) {
	reg := newTestRegistry()

	require.True(t, reg.MatchesName("test_alpha_only"))
	require.True(t, reg.MatchesName("test_zonal_*"))
	require.False(t, reg.MatchesName("test_missing"))
}

func TestSuiteTopicStamped(t *testing.T) {
	reg := New()
	reg.Suite("epi").Add(Spec{Name: "test_x", Run: noopRun})

	units, violations := reg.Discover(Filter{})
	require.Empty(t, violations)
	require.Equal(t, "epi", units[0].Topic)
}

func TestRegions(t *testing.T) {
	reg := New()
	reg.Suite("b").Cover(model.Region{Module: "b", Name: "r1", Lines: 3})
	reg.Suite("a").Cover(model.Region{Module: "a", Name: "r2", Lines: 5})

	regions := reg.Regions()
	require.Len(t, regions, 2)
	// Topic-lexicographic ordering, same as discovery.
	require.Equal(t, "a/r2", regions[0].Key())
	require.Equal(t, "b/r1", regions[1].Key())
}

func TestExpect(t *testing.T) {
	require.NoError(t, Expect("equal ints", 3, 3))

	err := Expect("unequal ints", 3, 4)
	require.Error(t, err)
	f, ok := err.(*Failure)
	require.True(t, ok)
	require.Equal(t, "3", f.Expected)
	require.Equal(t, "4", f.Actual)
}
