package main

import (
	"fmt"
	"text/tabwriter"
)

// Run executes the extensions command.
func (c *ExtensionsCmd) Run(deps *Dependencies) error {
	infos := deps.Registry.Extensions()
	if len(infos) == 0 {
		fmt.Fprintln(deps.Stdout, "No extensions loaded. Use --ext to load one.")
		return nil
	}

	w := tabwriter.NewWriter(deps.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tKIND\tLEVEL\tTREES")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", info.Path, info.Kind, info.Level, info.Trees)
	}
	return w.Flush()
}
