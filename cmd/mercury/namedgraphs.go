package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/mercury/internal/store"
)

var namedGraphsCmd = &cobra.Command{
	Use:   "named-graphs",
	Short: "List every named graph with at least one non-deleted quad",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := store.Open(cfg.Store.Path, cfg.StoreOptions())
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		graphs, err := s.NamedGraphs()
		if err != nil {
			return fmt.Errorf("failed to list named graphs: %w", err)
		}
		if len(graphs) == 0 {
			fmt.Println("No named graphs found")
			return nil
		}
		for _, g := range graphs {
			fmt.Printf("%d\n", g)
		}
		return nil
	},
}
