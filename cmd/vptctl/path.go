package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/virtualpytest/core/internal/graph"
	"github.com/virtualpytest/core/internal/store"
)

func pathCmd() *cobra.Command {
	var teamID, start, target string

	cmd := &cobra.Command{
		Use:   "path <tree_id>",
		Short: "Preview the shortest path between two nodes without executing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx := context.Background()

			pg, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN)
			if err != nil {
				return fmt.Errorf("connect store: %w", err)
			}
			defer pg.Close()

			cache := graph.NewCache(pg)
			entry, err := cache.GetByTreeID(ctx, teamID, args[0])
			if err != nil {
				return fmt.Errorf("load tree: %w", err)
			}

			startID, ok := entry.ResolveStart(start)
			if !ok {
				return fmt.Errorf("start node not found: %q", start)
			}

			if target == "" {
				return printJSON(entry.BuildValidationSequence())
			}

			transitions, err := entry.FindShortestPath(startID, target)
			if err != nil {
				return err
			}
			if transitions == nil {
				return fmt.Errorf("no path found from %q to %q", start, target)
			}
			return printJSON(transitions)
		},
	}

	cmd.Flags().StringVar(&teamID, "team", "", "team id scoping the tree (required)")
	cmd.Flags().StringVar(&start, "start", "", "start node id or label; defaults to the tree's entry point")
	cmd.Flags().StringVar(&target, "target", "", "target node id or label; omit to print the full validation sequence")
	cmd.MarkFlagRequired("team")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
