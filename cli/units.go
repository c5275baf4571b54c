package cli

// This file contains the units command for printing the discovered catalog.

import (
	"fmt"
	"strings"
	"time"

	"github.com/suiterun/suiterun/registry"
	"github.com/urfave/cli/v2"
)

func (a *App) units(ctx *cli.Context) error {
	units, violations := a.registry.Discover(registry.Filter{Tags: ctx.StringSlice("tag")})

	if len(units) == 0 {
		fmt.Println("No units registered")
		return nil
	}

	fmt.Printf("\n=== Units (%d) ===\n\n", len(units))
	topic := ""
	for _, u := range units {
		if u.Topic != topic {
			topic = u.Topic
			fmt.Printf("%s:\n", topic)
		}
		fmt.Printf("  %s", u.Name)
		if len(u.Tags) > 0 {
			fmt.Printf("  [%s]", strings.Join(u.Tags, ", "))
		}
		if u.Timeout > 0 {
			fmt.Printf("  timeout=%s", u.Timeout.Round(time.Millisecond))
		}
		if u.SkipReason != "" {
			fmt.Printf("  (skipped: %s)", u.SkipReason)
		}
		fmt.Println()
		for _, p := range u.Params {
			fmt.Printf("      %s=%v\n", p.Name, p.Default)
		}
	}

	if len(violations) > 0 {
		fmt.Printf("\nstructural violations:\n")
		for _, v := range violations {
			fmt.Printf("  - %s\n", v)
		}
	}
	return nil
}
