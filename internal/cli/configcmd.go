package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ConfigShowCmd prints the effective configuration after file/env layering.
type ConfigShowCmd struct{}

// Run executes the config show command.
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config

	if globals.Format == "ndjson" {
		enc := json.NewEncoder(globals.Stdout)
		return enc.Encode(map[string]interface{}{
			"type":   "config",
			"config": cfg,
		})
	}

	fmt.Fprintln(globals.Stdout, "Current Configuration:")
	fmt.Fprintf(globals.Stdout, "  format: %s\n", cfg.Format)
	fmt.Fprintf(globals.Stdout, "  quiet: %t\n", cfg.Quiet)
	fmt.Fprintf(globals.Stdout, "  verbose: %t\n", cfg.Verbose)
	fmt.Fprintln(globals.Stdout, "Analysis:")
	fmt.Fprintf(globals.Stdout, "  rounds: %d\n", cfg.Analysis.Rounds)
	fmt.Fprintf(globals.Stdout, "  tolerance: %d\n", cfg.Analysis.Tolerance)
	fmt.Fprintf(globals.Stdout, "  strict_pid_match: %t\n", cfg.Analysis.StrictPIDMatch)
	fmt.Fprintf(globals.Stdout, "  apps (%d):\n", len(cfg.Analysis.Apps))
	for _, app := range cfg.Analysis.Apps {
		fmt.Fprintf(globals.Stdout, "    %s\n", app)
	}
	if len(cfg.Rules.Patterns) > 0 {
		fmt.Fprintf(globals.Stdout, "Pattern overrides: %s\n", strings.Join(patternNames(cfg.Rules.Patterns), ", "))
	}
	return nil
}

func patternNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
