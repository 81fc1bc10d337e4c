package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemby/mercury/internal/store"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Wipe every component of the configured store back to empty",
	Long:  `Destructive: clear prompts for confirmation unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force && !confirm("This will permanently erase all data. Continue?") {
			fmt.Println("Aborted.")
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := store.Open(cfg.Store.Path, cfg.StoreOptions())
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		if err := s.Clear(); err != nil {
			return fmt.Errorf("clear failed: %w", err)
		}
		fmt.Println("✓ Store cleared")
		return nil
	},
}

func init() {
	clearCmd.Flags().Bool("force", false, "Skip the confirmation prompt")
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.ToLower(strings.TrimSpace(line)) == "y"
}
