package main

import (
	"fmt"

	"github.com/spf13/cobra"

	import_pkg "github.com/referral-labels/internal/import"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load offices from CSV files",
	}
	cmd.AddCommand(createImportLayoutCmd(ctx, import_pkg.LayoutOffices, "Import offices (id, name, address, tier, source)"))
	cmd.AddCommand(createImportLayoutCmd(ctx, import_pkg.LayoutPartners, "Import referral partner offices"))
	cmd.AddCommand(createImportLayoutCmd(ctx, import_pkg.LayoutDiscovered, "Import discovered offices"))
	return cmd
}

func createImportLayoutCmd(ctx *commandContext, layout, short string) *cobra.Command {
	return &cobra.Command{
		Use:   layout + " <file.csv>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			importer := import_pkg.NewCSVImporter(st, ctx.log())
			summary, err := importer.Import(cmd.Context(), args[0], layout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d %s records (%d rows skipped)\n", summary.Imported, layout, summary.Errors)
			return nil
		},
	}
}
