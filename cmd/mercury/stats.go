package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cuemby/mercury/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print AtomStore and triple-count statistics",
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

		stats := s.Stats()
		fmt.Printf("Atoms: %d (%d bytes)\n", stats.AtomCount, stats.AtomBytes)
		fmt.Printf("Taken at tx: %d\n", stats.TakenAtTx)

		type row struct {
			predicate uint64
			count     int64
		}
		rows := make([]row, 0, len(stats.TripleCounts))
		for pred, ps := range stats.TripleCounts {
			rows = append(rows, row{predicate: uint64(pred), count: ps.TripleCount})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].count > rows[j].count })

		fmt.Println("\nTop predicates:")
		for _, r := range rows {
			fmt.Printf("  %d: %d triples\n", r.predicate, r.count)
		}
		return nil
	},
}
