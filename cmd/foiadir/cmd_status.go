package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"foiadir/internal/directory"
)

// statusCmd shows directory health
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show directory status",
	RunE:  showStatus,
}

func showStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("foiadir Directory Status")
	fmt.Println("========================")
	fmt.Printf("Config:    %s\n", configPath)
	fmt.Printf("Directory: %s\n", cfg.Directory.Path)
	fmt.Println()

	if cfg.Registry.APIKey != "" {
		fmt.Println("✓ Registry API key configured")
	} else {
		fmt.Println("✗ Registry API key not configured (set FOIA_API_KEY)")
	}

	info, err := os.Stat(cfg.Directory.Path)
	if os.IsNotExist(err) {
		fmt.Println("✗ No directory yet; run: foiadir sync")
		return nil
	}
	if err != nil {
		return err
	}

	store := directory.NewStore(cfg.Directory.Path, cfg.GetCacheTTL(), logger)
	records, err := store.Records()
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	withEmail := 0
	for _, rec := range records {
		if rec.HasEmail() {
			withEmail++
		}
	}

	fmt.Printf("✓ Directory loaded\n")
	fmt.Printf("  Records:     %d\n", len(records))
	fmt.Printf("  With email:  %d\n", withEmail)
	fmt.Printf("  Last write:  %s (%s ago)\n",
		info.ModTime().Format("2006-01-02 15:04"),
		time.Since(info.ModTime()).Round(time.Minute))
	return nil
}
