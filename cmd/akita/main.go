package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/akita-tools/akita/internal/cli"
	"github.com/akita-tools/akita/internal/config"
)

const quickStart = `akita - Android process lifecycle analysis from logcat captures

Quick start:
  akita analyze capture.log               Kills, startups, residency
  akita analyze capture.log.gz --window   Also locate the startup test window
  akita window capture.log -r 3           Window detection only
  akita ui capture.log                    Browse the timeline

For help:
  akita --help                            All commands and flags
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Config defaults apply before parsing; CLI flags override them.
	vars := kong.Vars{
		"config_format": cfg.Format,
	}

	ctx := kong.Parse(&c,
		kong.Name("akita"),
		kong.Description("Process lifecycle analysis for Android logcat captures: low-memory kills, cold/hot startups, background residency"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	globals := cli.NewGlobalsWithConfig(&c, cfg)
	err = ctx.Run(globals)
	if err != nil {
		os.Exit(1)
	}
}
