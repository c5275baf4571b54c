package cli

// This file contains the sweep command for manually clearing ephemeral
// artifacts from the store.

import (
	"fmt"

	"github.com/suiterun/suiterun/artifact"
	"github.com/suiterun/suiterun/config"
	"github.com/suiterun/suiterun/history"
	"github.com/urfave/cli/v2"
)

func (a *App) sweep(ctx *cli.Context) error {
	cfg, err := config.LoadOrDefault(ctx.String("config"))
	if err != nil {
		return err
	}

	storeRoot, err := history.StoreRoot(cfg.StoreDir)
	if err != nil {
		return err
	}

	store, err := artifact.Open(a.logger, history.ArtifactDir(storeRoot), false)
	if err != nil {
		return err
	}

	removed, err := store.Sweep(ctx.Bool("pinned"))
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Printf("Removed %d artifact(s) from %s\n", removed, store.Dir())
	return nil
}
