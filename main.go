package main

import (
	"log"
	"os"

	"github.com/suiterun/suiterun/cli"
	"github.com/suiterun/suiterun/examples/demo"
	"github.com/suiterun/suiterun/registry"
)

// Version information, set by goreleaser via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	reg := registry.New()
	demo.Register(reg)

	c := cli.New(reg)
	c.SetVersion(version, commit, date)
	err := c.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
