package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() (*cobra.Command, *commandContext) {
	var configFlag string
	var debugFlag bool

	ctx := newCommandContext(&configFlag, &debugFlag)

	rootCmd := &cobra.Command{
		Use:           "labels",
		Short:         "Referral office mailing labels",
		Long:          `Build, review, correct and export mailing labels for referral partner offices`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipsConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug output")

	rootCmd.AddCommand(newParseCommand())
	rootCmd.AddCommand(newContactCommand())
	rootCmd.AddCommand(newBuildCommand(ctx))
	rootCmd.AddCommand(newPreviewCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newCorrectCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newPingCommand(ctx))

	return rootCmd, ctx
}

// skipsConfig is true for the pure text commands.
func skipsConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "parse", "contact", "help", "labels":
		return true
	}
	return false
}
