package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/mercury/internal/store"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open (creating if absent) the configured store and report its state",
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

		fmt.Printf("✓ Store opened: %s\n", s.Dir())
		fmt.Printf("  State: %s\n", s.State())
		return nil
	},
}
