package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"foiadir/internal/compose"
	"foiadir/internal/directory"
)

var (
	composeID          string
	composeName        string
	composeBody        string
	composeBodyFile    string
	composeFeeCategory string
	composeFeeLimit    int
	composeWaiver      string
)

// composeCmd builds the channel-specific submission payload
var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose a submission payload for a unit",
	Long: `Resolves a unit and prints the composed payload as JSON: a request
letter for EMAIL units, an ordered field manifest for PORTAL units.

The requester identity comes from the requester config section unless
overridden there. Example:

  foiadir compose --name "Office of the Secretary" \
    --request "All travel vouchers for senior staff, 2024." \
    --fee-limit 50`,
	RunE: runCompose,
}

func init() {
	composeCmd.Flags().StringVar(&composeID, "id", "", "Unit id")
	composeCmd.Flags().StringVar(&composeName, "name", "", "Unit name")
	composeCmd.Flags().StringVar(&composeBody, "request", "", "Request text")
	composeCmd.Flags().StringVar(&composeBodyFile, "request-file", "", "Read request text from file")
	composeCmd.Flags().StringVar(&composeFeeCategory, "fee-category", "", "Fee category (commercial, educational, scientific, media, other)")
	composeCmd.Flags().IntVar(&composeFeeLimit, "fee-limit", 0, "Fee ceiling in USD")
	composeCmd.Flags().StringVar(&composeWaiver, "waiver", "", "Request a fee waiver with this justification")
}

func runCompose(cmd *cobra.Command, args []string) error {
	body := composeBody
	if composeBodyFile != "" {
		data, err := os.ReadFile(composeBodyFile)
		if err != nil {
			return fmt.Errorf("failed to read request file: %w", err)
		}
		body = string(data)
	}

	store := directory.NewStore(cfg.Directory.Path, cfg.GetCacheTTL(), logger)
	resolver := directory.NewResolver(store, logger)
	composer := compose.New(cfg.Compose, cfg.Portal, cfg.Requester)

	res, err := resolver.Resolve(directory.Query{UnitID: composeID, Name: composeName})
	if err != nil {
		return err
	}

	payload, err := composer.Build(res, compose.Request{
		Body:                body,
		FeeCategory:         composeFeeCategory,
		FeeLimitUSD:         composeFeeLimit,
		WaiverRequested:     composeWaiver != "",
		WaiverJustification: composeWaiver,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
