package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/referral-labels/internal/model"
)

func newPingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test the database connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := ctx.loadRecords(cmd.Context())
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}

			partners, discovered, noAddress := 0, 0, 0
			for _, r := range records {
				switch r.Source {
				case model.SourceDiscovered:
					discovered++
				default:
					partners++
				}
				if !r.HasAddress() {
					noAddress++
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database connection successful (%s)\n", ctx.config.Database.Driver)
			fmt.Fprintf(out, "Offices: %d (%d partner, %d discovered, %d without address)\n",
				len(records), partners, discovered, noAddress)
			return nil
		},
	}
}
