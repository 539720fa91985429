package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"foiadir/internal/directory"
)

var (
	resolveID   string
	resolveName string
)

// resolveCmd maps a unit to its submission channel
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a unit to its submission channel",
	Long: `Looks up a unit by id or name and prints the channel decision as
JSON: EMAIL with the unit's address when one is known, PORTAL otherwise.

Example:
  foiadir resolve --name "Office of Inspector General"`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveID, "id", "", "Unit id to resolve")
	resolveCmd.Flags().StringVar(&resolveName, "name", "", "Unit name to resolve")
}

func runResolve(cmd *cobra.Command, args []string) error {
	store := directory.NewStore(cfg.Directory.Path, cfg.GetCacheTTL(), logger)
	resolver := directory.NewResolver(store, logger)

	res, err := resolver.Resolve(directory.Query{UnitID: resolveID, Name: resolveName})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
