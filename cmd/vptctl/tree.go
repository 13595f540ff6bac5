package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/virtualpytest/core/internal/store"
)

func treeCmd() *cobra.Command {
	var teamID string

	cmd := &cobra.Command{
		Use:   "tree <tree_id>",
		Short: "Print a navigation tree's resolved metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx := context.Background()

			pg, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN)
			if err != nil {
				return fmt.Errorf("connect store: %w", err)
			}
			defer pg.Close()

			tree, err := pg.GetTree(ctx, teamID, args[0])
			if err != nil {
				return fmt.Errorf("load tree: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(tree)
		},
	}

	cmd.Flags().StringVar(&teamID, "team", "", "team id scoping the tree (required)")
	cmd.MarkFlagRequired("team")
	return cmd
}
