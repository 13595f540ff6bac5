package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "vpt-host",
		Short: "VirtualPyTest host process",
		Long:  "Runs the host-side execution surface: action/verification/navigation/block dispatch against locally attached device controllers.",
	}
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
