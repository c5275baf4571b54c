package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/suiterun/suiterun/config"
	"github.com/suiterun/suiterun/model"
	"github.com/suiterun/suiterun/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	suite := reg.Suite("alpha")
	run := func(ctx context.Context, cfg registry.UnitConfig) (any, error) { return nil, nil }
	suite.Add(registry.Spec{Name: "test_one", Tags: []string{"fast"}, Run: run})
	suite.Add(registry.Spec{Name: "test_two", Run: run})
	return reg
}

func TestResolveStandalone(t *testing.T) {
	rc, err := Resolve(Request{
		Mode:     model.ModeStandalone,
		Patterns: []string{"test_one"},
		Workers:  8, // ignored in this mode
	}, testRegistry(t), config.Default())
	require.NoError(t, err)

	require.Equal(t, 1, rc.Workers)
	require.True(t, rc.Verbose)
	require.True(t, rc.Plotting)
	require.Zero(t, rc.Budget)
	require.Len(t, rc.Units, 1)
	require.Equal(t, "test_one", rc.Units[0].Name)
}

func TestResolveStandaloneNeedsPattern(t *testing.T) {
	_, err := Resolve(Request{Mode: model.ModeStandalone}, testRegistry(t), config.Default())
	require.Error(t, err)
}

func TestResolveDiscoveryDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 4

	rc, err := Resolve(Request{Mode: model.ModeDiscovery}, testRegistry(t), cfg)
	require.NoError(t, err)

	require.Equal(t, 4, rc.Workers)
	require.False(t, rc.Verbose)
	require.False(t, rc.Plotting)
	require.Zero(t, rc.Budget)
	require.Len(t, rc.Units, 2)
	require.Equal(t, cfg.UnitTimeout, rc.Timeout)

	rc, err = Resolve(Request{Mode: model.ModeDiscovery, Workers: 2}, testRegistry(t), cfg)
	require.NoError(t, err)
	require.Equal(t, 2, rc.Workers, "explicit worker count beats the config")
}

func TestResolveAutomatedBudget(t *testing.T) {
	cfg := config.Default()
	cfg.Budget = 5 * time.Minute

	rc, err := Resolve(Request{Mode: model.ModeAutomated}, testRegistry(t), cfg)
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, rc.Budget)

	rc, err = Resolve(Request{Mode: model.ModeAutomated, Budget: time.Minute}, testRegistry(t), cfg)
	require.NoError(t, err)
	require.Equal(t, time.Minute, rc.Budget)

	cfg.Budget = 0
	_, err = Resolve(Request{Mode: model.ModeAutomated}, testRegistry(t), cfg)
	require.Error(t, err)
}

func TestResolveUnknownMode(t *testing.T) {
	_, err := Resolve(Request{Mode: "interactive"}, testRegistry(t), config.Default())
	require.Error(t, err)

	_, err = Resolve(Request{}, testRegistry(t), config.Default())
	require.Error(t, err)
}

func TestResolveNoSuchUnit(t *testing.T) {
	_, err := Resolve(Request{
		Mode:     model.ModeDiscovery,
		Patterns: []string{"test_one", "test_missing"},
	}, testRegistry(t), config.Default())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoSuchUnit))
	require.Contains(t, err.Error(), "test_missing")
}

func TestResolveTagFilter(t *testing.T) {
	rc, err := Resolve(Request{
		Mode: model.ModeDiscovery,
		Tags: []string{"fast"},
	}, testRegistry(t), config.Default())
	require.NoError(t, err)
	require.Len(t, rc.Units, 1)
	require.Equal(t, "test_one", rc.Units[0].Name)
}

func TestResolveStrictViolations(t *testing.T) {
	reg := registry.New()
	run := func(ctx context.Context, cfg registry.UnitConfig) (any, error) { return nil, nil }
	suite := reg.Suite("alpha")
	suite.Add(registry.Spec{Name: "bad_name", Run: run})
	suite.Add(registry.Spec{Name: "test_ok", Run: run})

	rc, err := Resolve(Request{Mode: model.ModeDiscovery}, reg, config.Default())
	require.NoError(t, err)
	require.Len(t, rc.Violations, 1)

	_, err = Resolve(Request{Mode: model.ModeDiscovery, Strict: true}, reg, config.Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "strict")
}

func TestResolveRenderBackend(t *testing.T) {
	cfg := config.Default()
	cfg.RenderBackend = "headless"

	t.Setenv(RenderBackendEnv, "cairo")

	rc, err := Resolve(Request{
		Mode:     model.ModeStandalone,
		Patterns: []string{"test_one"},
	}, testRegistry(t), cfg)
	require.NoError(t, err)
	require.Equal(t, "cairo", rc.RenderBackend, "env var overrides config when plotting")

	rc, err = Resolve(Request{Mode: model.ModeDiscovery}, testRegistry(t), cfg)
	require.NoError(t, err)
	require.Empty(t, rc.RenderBackend, "backend is not consulted when plotting is off")
}
