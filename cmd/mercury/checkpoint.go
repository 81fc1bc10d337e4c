package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/mercury/internal/store"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Truncate the WAL and refresh the statistics snapshot",
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

		if err := s.Checkpoint(); err != nil {
			return fmt.Errorf("checkpoint failed: %w", err)
		}
		fmt.Println("✓ Checkpoint complete")
		return nil
	},
}
