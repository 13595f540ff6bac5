package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/virtualpytest/core/internal/config"
)

var serverAddr string

func main() {
	root := &cobra.Command{
		Use:   "vptctl",
		Short: "VirtualPyTest operator CLI",
		Long:  "Developer tooling for the execution core: inspect navigation trees, preview paths, and trigger campaign runs against a running server.",
	}
	root.PersistentFlags().StringVar(&serverAddr, "server", "", "server HTTP address, overrides SERVER_URL")

	root.AddCommand(treeCmd())
	root.AddCommand(pathCmd())
	root.AddCommand(campaignCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg := config.DefaultConfig()
	config.LoadFromEnv(cfg)
	if serverAddr != "" {
		cfg.Server.HTTPAddr = serverAddr
	}
	return cfg
}
