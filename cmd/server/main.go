package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "vpt-server",
		Short: "VirtualPyTest server process",
		Long:  "Runs the server-side surface: validation sweeps, script/campaign dispatch to hosts, pathfinding preview.",
	}
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
